package hermes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// fakeEntity is how the fake analysis UI answers for one entity code.
type fakeEntity struct {
	listed        bool   // appears in the member list
	table         string // result table markup, empty for no table
	neverFinishes bool   // "Running query" never goes away
	busyPolls     int    // polls before "Running query" goes away
	panics        bool   // the run button panics while this entity is filtered
}

// fakeUI simulates the analysis UI closely enough for the workflow: a cube
// dropdown, measures, category headers, draggable fields, the member filter
// dialog, the run button and the result table.
type fakeUI struct {
	cubes      []string
	measures   int
	categories []string
	fields     []string
	entities   map[string]*fakeEntity

	filterOpen bool
	picked     string
	added      bool
	applied    string
	running    *fakeEntity
	busyLeft   int

	selectedCube string
	clicks       []string
	drags        []string
	closes       int
	closed       bool
	navigated    string

	// overlay keeps the "Running query" mask over the page while a query
	// never finishes; clicks then block until their context ends.
	overlay bool
}

func newFakeUI() *fakeUI {
	return &fakeUI{
		cubes:      []string{"Select a cube", "Beneficiarios - Vidas"},
		measures:   2,
		categories: []string{"Operadoras", "Cobertura Assistencial", "Area Residência do Beneficiario"},
		fields:     []string{"Registro", "Razao Social", "Cobertura Assistencial", "UF", "Nome  do municipio"},
		entities:   map[string]*fakeEntity{},
	}
}

func (ui *fakeUI) launcher() Launcher {
	return func(ctx context.Context, engine *Engine) (Browser, error) {
		return &fakeBrowser{ui: ui}, nil
	}
}

func (ui *fakeUI) covered() bool {
	return ui.overlay && ui.running != nil && ui.running.neverFinishes
}

func (ui *fakeUI) clicked(name string) int {
	n := 0
	for _, c := range ui.clicks {
		if c == name {
			n++
		}
	}
	return n
}

type fakeBrowser struct {
	ui *fakeUI
}

func (b *fakeBrowser) Page() Page { return &fakePage{ui: b.ui} }

func (b *fakeBrowser) Close() error {
	b.ui.closed = true
	return nil
}

type fakePage struct {
	ui *fakeUI
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.ui.navigated = url
	return ctx.Err()
}

func (p *fakePage) HTML() (string, error) {
	return "<html><body>fake</body></html>", nil
}

func (p *fakePage) Drag(ctx context.Context, source, target Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, _ := source.Text()
	dst, _ := target.Text()
	p.ui.drags = append(p.ui.drags, src+"->"+dst)
	return nil
}

func (p *fakePage) el(name string, click func() error) *fakeElement {
	return &fakeElement{ui: p.ui, name: name, visible: true, enabled: true, click: click}
}

func (p *fakePage) Elements(loc Locator) ([]Element, error) {
	ui := p.ui
	switch loc {
	case cubeDropdown:
		return []Element{&fakeElement{ui: ui, name: "cubes", visible: true, enabled: true, options: ui.cubes}}, nil
	case measureLinks:
		var out []Element
		for i := 0; i < ui.measures; i++ {
			out = append(out, p.el(fmt.Sprintf("measure%d", i), nil))
		}
		return out, nil
	case rowsAxis:
		return []Element{p.el("rows", nil)}, nil
	case registroDimension:
		return []Element{p.el("registro", func() error {
			ui.filterOpen = true
			ui.picked, ui.added = "", false
			return nil
		})}, nil
	case useResultLabel, removeAllMembers:
		if !ui.filterOpen {
			return nil, nil
		}
		return []Element{p.el(loc.Value, nil)}, nil
	case addMembers:
		if !ui.filterOpen {
			return nil, nil
		}
		return []Element{p.el("add", func() error {
			ui.added = ui.picked != ""
			return nil
		})}, nil
	case saveFilter:
		if !ui.filterOpen {
			return nil, nil
		}
		return []Element{p.el("save", func() error {
			if ui.added {
				ui.applied = ui.picked
			}
			ui.filterOpen = false
			return nil
		})}, nil
	case closeFilter:
		if !ui.filterOpen {
			return nil, nil
		}
		return []Element{p.el("close", func() error {
			ui.closes++
			ui.filterOpen = false
			return nil
		})}, nil
	case runQuery:
		return []Element{p.el("run", func() error {
			entity := ui.entities[ui.applied]
			if entity == nil {
				entity = &fakeEntity{}
			}
			if entity.panics {
				panic("stale element")
			}
			ui.running = entity
			ui.busyLeft = entity.busyPolls
			return nil
		})}, nil
	case runningIndicator:
		if ui.running == nil {
			return nil, nil
		}
		if ui.running.neverFinishes {
			return []Element{p.el("running", nil)}, nil
		}
		if ui.busyLeft > 0 {
			ui.busyLeft--
			return []Element{p.el("running", nil)}, nil
		}
		return []Element{&fakeElement{ui: ui, name: "running", visible: false}}, nil
	case resultTable:
		if ui.running == nil || ui.running.table == "" {
			return nil, nil
		}
		return []Element{&fakeElement{ui: ui, name: "table", visible: true, enabled: true, html: ui.running.table}}, nil
	}

	for _, c := range ui.categories {
		if loc == textLocator(c) {
			return []Element{p.el(c, nil)}, nil
		}
	}
	for _, f := range ui.fields {
		if loc == fieldCandidates(f)[1] {
			return []Element{p.el(f, nil)}, nil
		}
	}
	for code, entity := range ui.entities {
		if loc == memberCheckbox(code) {
			if !ui.filterOpen || !entity.listed {
				return nil, nil
			}
			code := code
			return []Element{p.el("member "+code, func() error {
				ui.picked = code
				return nil
			})}, nil
		}
	}
	return nil, nil
}

type fakeElement struct {
	ui       *fakeUI
	name     string
	visible  bool
	enabled  bool
	click    func() error
	html     string
	options  []string
	clickErr error
}

func (e *fakeElement) Text() (string, error) { return e.name, nil }

func (e *fakeElement) Visible() (bool, error) { return e.visible, nil }

func (e *fakeElement) Enabled() (bool, error) { return e.enabled, nil }

func (e *fakeElement) ScrollIntoView(ctx context.Context) error { return ctx.Err() }

func (e *fakeElement) HTML() (string, error) { return e.html, nil }

func (e *fakeElement) Options() ([]string, error) { return e.options, nil }

func (e *fakeElement) Click(ctx context.Context) error {
	if e.ui.covered() {
		<-ctx.Done()
		return ctx.Err()
	}
	if e.clickErr != nil {
		return e.clickErr
	}
	e.ui.clicks = append(e.ui.clicks, e.name)
	if e.click != nil {
		return e.click()
	}
	return nil
}

func (e *fakeElement) SelectOption(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, o := range e.options {
		if o == text {
			e.ui.selectedCube = text
			return nil
		}
	}
	return errors.New("no such option")
}

// recordingLogger keeps every line for assertions.
type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	warns  []string
	errors []string
}

func (l *recordingLogger) Info(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Warn(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Error(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) has(lines []string, part string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range lines {
		if strings.Contains(line, part) {
			return true
		}
	}
	return false
}

func testConfig(values map[string]interface{}) *configService {
	v := viper.New()
	for k, val := range values {
		v.Set(k, val)
	}
	return &configService{v: v}
}

// testEngine waits milliseconds where the real UI needs seconds.
func testEngine() Engine {
	eng := getDefaultEngine()
	eng.DashboardURL = "http://saiku.test/index.html"
	eng.Timeout = 30 * time.Millisecond
	eng.PollEvery = time.Millisecond
	eng.PollInterval = time.Millisecond
	eng.QueryTimeout = 10 * time.Millisecond
	eng.TableAttempts = 3
	eng.Pacing = Pacing{}
	return eng
}

func newTestExtractor(t *testing.T, ui *fakeUI) (*Extractor, *recordingLogger) {
	t.Helper()
	logger := &recordingLogger{}
	app := newExtractor("test", testConfig(nil), logger, testEngine())
	app.SetLauncher(ui.launcher())
	return app, logger
}

// entityTable renders a result table the way the UI does: the entity code
// with thousands separators and grouped cells left blank.
func entityTable(code string, ufs ...string) string {
	var b strings.Builder
	b.WriteString(`<table id="table_14"><thead><tr><th>Registro</th><th>Razao Social</th><th>UF</th><th>Beneficiarios</th></tr></thead><tbody>`)
	for i, uf := range ufs {
		registro, name := "", ""
		if i == 0 {
			registro, name = dotted(code), "Operadora "+code
		}
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%d.%03d</td></tr>", registro, name, uf, i+1, 250)
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

func dotted(code string) string {
	var parts []string
	for len(code) > 3 {
		parts = append([]string{code[len(code)-3:]}, parts...)
		code = code[:len(code)-3]
	}
	return strings.Join(append([]string{code}, parts...), ".")
}
