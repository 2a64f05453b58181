package hermes

import (
	"fmt"
	"strings"
)

type LocatorKind int

const (
	ByCSS LocatorKind = iota
	ByXPath
	ByID
)

// Locator addresses elements of the remote UI.
type Locator struct {
	Kind  LocatorKind
	Value string
}

func CSS(selector string) Locator { return Locator{Kind: ByCSS, Value: selector} }
func XPath(expr string) Locator   { return Locator{Kind: ByXPath, Value: expr} }
func ID(id string) Locator        { return Locator{Kind: ByID, Value: id} }

// CSSSelector renders CSS and ID locators as a CSS selector.
func (l Locator) CSSSelector() string {
	if l.Kind == ByID {
		return "#" + l.Value
	}
	return l.Value
}

func (l Locator) String() string {
	switch l.Kind {
	case ByXPath:
		return "xpath=" + l.Value
	case ByID:
		return "id=" + l.Value
	default:
		return "css=" + l.Value
	}
}

// Selectors of the analysis UI.
var (
	cubeDropdown      = CSS("select")
	measureLinks      = CSS("a.measure")
	rowsAxis          = CSS(".fields_list_body.rows.axis_fields")
	useResultLabel    = XPath("//label[contains(text(), 'Use Result')]")
	removeAllMembers  = ID("remove_all_members")
	addMembers        = ID("add_members")
	saveFilter        = XPath("//a[@href='#save']")
	closeFilter       = XPath("//a[@href='#close']")
	runQuery          = ID("run_icon")
	runningIndicator  = XPath("//*[contains(text(), 'Running query')]")
	resultTable       = XPath(`//*[@id="table_14"]`)
	registroDimension = textLocator("Registro")
)

// textLocator matches any element whose text contains s.
func textLocator(s string) Locator {
	return XPath(fmt.Sprintf("//*[contains(text(), %s)]", xpathLiteral(s)))
}

// fieldCandidates lists where a dimension field may be found, most specific first.
func fieldCandidates(title string) []Locator {
	return []Locator{
		XPath(fmt.Sprintf("//li[contains(@class, 'ui-draggable')]//a[@title=%s]", xpathLiteral(title))),
		XPath(fmt.Sprintf("//a[@title=%s]", xpathLiteral(title))),
	}
}

func memberCheckbox(code string) Locator {
	return XPath(fmt.Sprintf("//input[@label=%s]", xpathLiteral(code)))
}

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequence, so a value holding both quote kinds is built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	args := make([]string, 0, 2*len(parts)-1)
	for i, part := range parts {
		if i > 0 {
			args = append(args, `"'"`)
		}
		if part != "" {
			args = append(args, "'"+part+"'")
		}
	}
	return "concat(" + strings.Join(args, ", ") + ")"
}
