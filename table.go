package hermes

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

type ValueKind int

const (
	Null ValueKind = iota
	Text
	Number
)

// Value is one table cell.
type Value struct {
	Kind   ValueKind
	Text   string
	Number float64
}

func NullValue() Value            { return Value{Kind: Null} }
func TextValue(s string) Value    { return Value{Kind: Text, Text: s} }
func NumberValue(f float64) Value { return Value{Kind: Number, Number: f} }

func (v Value) IsNull() bool { return v.Kind == Null }

func (v Value) Equal(other Value) bool { return v.key() == other.key() }

func (v Value) String() string {
	switch v.Kind {
	case Number:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case Text:
		return v.Text
	default:
		return ""
	}
}

// Interface returns nil, a float64 or a string.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case Number:
		return v.Number
	case Text:
		return v.Text
	default:
		return nil
	}
}

func (v Value) key() string {
	switch v.Kind {
	case Number:
		return "n:" + strconv.FormatFloat(v.Number, 'g', -1, 64)
	case Text:
		return "t:" + v.Text
	default:
		return "-"
	}
}

// Table is a scraped or collected result: ordered named columns and rows of
// cells, every row as wide as Columns.
type Table struct {
	Columns []string
	Rows    [][]Value
}

func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (t *Table) Column(name string) ([]Value, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	values := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values, nil
}

// Append adds a row, padding or truncating it to the table width.
func (t *Table) Append(row ...Value) {
	cells := make([]Value, len(t.Columns))
	copy(cells, row)
	t.Rows = append(t.Rows, cells)
}

// SetColumn sets name to v on every row, adding the column when missing.
func (t *Table) SetColumn(name string, v Value) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		t.Columns = append(t.Columns, name)
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], v)
		}
		return
	}
	for i := range t.Rows {
		t.Rows[i][idx] = v
	}
}

func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	c := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]Value, len(t.Rows)),
	}
	for i, row := range t.Rows {
		c.Rows[i] = append([]Value(nil), row...)
	}
	return c
}

// Records returns the rows keyed by column name.
func (t *Table) Records() []map[string]interface{} {
	records := make([]map[string]interface{}, 0, t.Len())
	for _, row := range t.Rows {
		record := make(map[string]interface{}, len(t.Columns))
		for i, name := range t.Columns {
			record[name] = row[i].Interface()
		}
		records = append(records, record)
	}
	return records
}

// StringRows renders every cell as text, nulls as empty strings.
func (t *Table) StringRows() [][]string {
	rows := make([][]string, 0, t.Len())
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = v.String()
		}
		rows = append(rows, cells)
	}
	return rows
}

// NumberFormat names the separators of rendered numbers.
type NumberFormat struct {
	Decimal   rune
	Thousands rune
}

// BrazilianNumbers renders one thousand and a half as "1.000,5".
var BrazilianNumbers = NumberFormat{Decimal: ',', Thousands: '.'}

var brazilianPattern = BrazilianNumbers.compile()

func (f NumberFormat) pattern() *regexp.Regexp {
	if f == BrazilianNumbers {
		return brazilianPattern
	}
	return f.compile()
}

func (f NumberFormat) compile() *regexp.Regexp {
	dec := regexp.QuoteMeta(string(f.Decimal))
	th := regexp.QuoteMeta(string(f.Thousands))
	return regexp.MustCompile(`^[+-]?(\d{1,3}(` + th + `\d{3})+|\d+)(` + dec + `\d+)?$`)
}

// ParseLocaleNumber parses s rendered in format f.
func ParseLocaleNumber(s string, f NumberFormat) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !f.pattern().MatchString(s) {
		return 0, false
	}
	s = strings.ReplaceAll(s, string(f.Thousands), "")
	s = strings.Replace(s, string(f.Decimal), ".", 1)
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// NormalizeRegistro strips the ".0" suffix a decimal rendering leaves on an
// entity code.
func NormalizeRegistro(s string) string {
	return strings.TrimSuffix(strings.TrimSpace(s), ".0")
}

// ParseTableHTML reads the first <table> in html. Spanned cells are copied
// into every slot they cover, empty cells become nulls, and a column is
// numeric only when every non-null cell parses as a number.
func ParseTableHTML(html string, format NumberFormat) (*Table, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return tableFromSelection(doc.Find("table").First(), format)
}

// ParseTableFile parses a saved page or table dump, honoring its declared charset.
func ParseTableFile(path string, format NumberFormat) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader, err := charset.NewReader(file, "text/html")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	return ParseTableHTML(string(raw), format)
}

// countTableRows counts the <tr> elements of the first table in html.
func countTableRows(html string) (int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, err
	}
	return doc.Find("tr").Length(), nil
}

func tableFromSelection(table *goquery.Selection, format NumberFormat) (*Table, error) {
	if table.Length() == 0 {
		return nil, ErrNoResultTable
	}

	var headerRows, bodyRows *goquery.Selection
	if thead := table.Find("thead"); thead.Length() > 0 {
		headerRows = thead.Find("tr")
		bodyRows = table.Find("tr").NotSelection(headerRows)
	} else {
		// leading rows made only of <th> are the header
		all := table.Find("tr")
		n := 0
		all.EachWithBreak(func(_ int, tr *goquery.Selection) bool {
			if tr.Children().Length() > 0 && tr.Children().Length() == tr.Children().Filter("th").Length() {
				n++
				return true
			}
			return false
		})
		headerRows = all.Slice(0, n)
		bodyRows = all.Slice(n, all.Length())
	}

	header := expandSpans(headerRows)
	body := expandSpans(bodyRows)

	width := 0
	for _, row := range append(append([][]*string{}, header...), body...) {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return nil, ErrNoResultTable
	}

	kinds := columnKinds(body, width, format)
	t := &Table{Columns: columnNames(header, width), Rows: make([][]Value, len(body))}
	for i, row := range body {
		values := make([]Value, width)
		for col := range values {
			var cell *string
			if col < len(row) {
				cell = row[col]
			}
			switch {
			case cell == nil:
				values[col] = NullValue()
			case kinds[col] == Number:
				n, _ := ParseLocaleNumber(*cell, format)
				values[col] = NumberValue(n)
			default:
				values[col] = TextValue(*cell)
			}
		}
		t.Rows[i] = values
	}
	return t, nil
}

// expandSpans lays rows out on a grid, repeating rowspan and colspan cells.
// Blank cells are nil.
func expandSpans(rows *goquery.Selection) [][]*string {
	type carry struct {
		left int
		text *string
	}
	pending := map[int]*carry{}
	var grid [][]*string

	rows.Each(func(_ int, tr *goquery.Selection) {
		var line []*string
		col := 0
		fill := func() {
			for {
				c, ok := pending[col]
				if !ok || c.left == 0 {
					return
				}
				line = append(line, c.text)
				c.left--
				col++
			}
		}
		tr.Children().Filter("td, th").Each(func(_ int, cell *goquery.Selection) {
			fill()
			text := cellText(cell)
			colspan := spanAttr(cell, "colspan")
			rowspan := spanAttr(cell, "rowspan")
			for k := 0; k < colspan; k++ {
				line = append(line, text)
				if rowspan > 1 {
					pending[col] = &carry{left: rowspan - 1, text: text}
				}
				col++
			}
		})
		fill()
		// carries right of a short row still own their columns
		last := -1
		for c, p := range pending {
			if p.left > 0 && c > last {
				last = c
			}
		}
		for ; col <= last; col++ {
			if c, ok := pending[col]; ok && c.left > 0 {
				line = append(line, c.text)
				c.left--
			} else {
				line = append(line, nil)
			}
		}
		for c, p := range pending {
			if p.left == 0 {
				delete(pending, c)
			}
		}
		grid = append(grid, line)
	})
	return grid
}

func cellText(cell *goquery.Selection) *string {
	text := strings.TrimSpace(strings.ReplaceAll(cell.Text(), "\u00a0", " "))
	if text == "" {
		return nil
	}
	return &text
}

func spanAttr(cell *goquery.Selection, name string) int {
	raw, ok := cell.Attr(name)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// columnNames takes the lowest non-blank header label of each column.
// Unlabeled columns are "Unnamed: i"; repeated labels get ".1", ".2" suffixes.
func columnNames(header [][]*string, width int) []string {
	names := make([]string, width)
	seen := map[string]int{}
	for col := 0; col < width; col++ {
		name := ""
		for _, row := range header {
			if col < len(row) && row[col] != nil {
				name = *row[col]
			}
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", col)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		names[col] = name
	}
	return names
}

func columnKinds(body [][]*string, width int, format NumberFormat) []ValueKind {
	kinds := make([]ValueKind, width)
	for col := range kinds {
		kinds[col] = Text
		numeric := false
		for _, row := range body {
			if col >= len(row) || row[col] == nil {
				continue
			}
			if _, ok := ParseLocaleNumber(*row[col], format); !ok {
				numeric = false
				break
			}
			numeric = true
		}
		if numeric {
			kinds[col] = Number
		}
	}
	return kinds
}
