package hermes

import (
	"time"
)

const (
	RodEngine        = "rod"
	PlayWrightEngine = "playwright"
)

// Engine holds the knobs of one automation run. Zero fields fall back to
// getDefaultEngine.
type Engine struct {
	Adapter        string // rod, playwright
	BrowserType    string
	Headless       *bool
	Args           []string
	ViewportWidth  int
	ViewportHeight int
	DashboardURL   string
	UserAgent      string

	// Timeout bounds ordinary element waits and each element action;
	// PollEvery is the step between element lookups while waiting.
	Timeout           time.Duration
	PollEvery         time.Duration
	NavigationTimeout time.Duration

	// QueryTimeout bounds one query run; PollInterval spaces the checks for
	// the "Running query" indicator and the result table.
	QueryTimeout  time.Duration
	PollInterval  time.Duration
	TableAttempts int

	CubePlaceholder string
	Categories      []string
	Fields          []string
	Pacing          Pacing
}

// Pacing lists every fixed pause of the workflow. The remote UI gives no
// acknowledgment for drags and clicks, so these are the only settle signal.
type Pacing struct {
	AfterCubeSelect   time.Duration
	AfterMeasureClick time.Duration
	AfterScroll       time.Duration
	AfterDrag         time.Duration
	BeforeFilter      time.Duration
	AfterFilterOpen   time.Duration
	BeforeMemberPick  time.Duration
	AfterQuery        time.Duration
}

func getDefaultEngine() Engine {
	headless := true
	return Engine{
		Adapter:        RodEngine,
		BrowserType:    "chromium",
		Headless:       &headless,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Args: []string{
			"--no-sandbox",
			"--disable-dev-shm-usage",
		},
		DashboardURL:      "https://www.ans.gov.br/pentaho/content/saiku-ui/index.html?biplugin5=true&userid=penanoprod&password=PRDAUpent001",
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36",
		Timeout:           10 * time.Second,
		PollEvery:         500 * time.Millisecond,
		NavigationTimeout: 60 * time.Second,
		QueryTimeout:      600 * time.Second,
		PollInterval:      2 * time.Second,
		TableAttempts:     10,
		CubePlaceholder:   "select a cube",
		Categories: []string{
			"Operadoras",
			"Cobertura Assistencial",
			"Area Residência do Beneficiario",
		},
		Fields: []string{
			"Registro",
			"Razao Social",
			"Cobertura Assistencial",
			"UF",
			"Nome  do municipio",
		},
		Pacing: Pacing{
			AfterCubeSelect:   3 * time.Second,
			AfterMeasureClick: 500 * time.Millisecond,
			AfterScroll:       300 * time.Millisecond,
			AfterDrag:         500 * time.Millisecond,
			BeforeFilter:      500 * time.Millisecond,
			AfterFilterOpen:   500 * time.Millisecond,
			BeforeMemberPick:  1 * time.Second,
			AfterQuery:        1 * time.Second,
		},
	}
}

// engineFromConfig layers environment settings over the defaults.
func engineFromConfig(config *configService) Engine {
	eng := getDefaultEngine()
	if adapter := config.GetString("BROWSER_ADAPTER"); adapter != "" {
		eng.Adapter = adapter
	}
	if config.IsSet("HEADLESS") {
		headless := config.GetBool("HEADLESS")
		eng.Headless = &headless
	} else if config.GetString("APP_ENV") == "local" {
		headless := false
		eng.Headless = &headless
	}
	if url := config.GetString("PENTAHO_URL"); url != "" {
		eng.DashboardURL = url
	}
	eng.QueryTimeout = config.GetSeconds("QUERY_TIMEOUT_SECONDS", eng.QueryTimeout)
	return eng
}

func overrideEngineDefaults(defaultEngine *Engine, eng *Engine) {
	if eng.Adapter != "" {
		defaultEngine.Adapter = eng.Adapter
	}
	if eng.BrowserType != "" {
		defaultEngine.BrowserType = eng.BrowserType
	}
	if eng.Headless != nil {
		defaultEngine.Headless = eng.Headless
	}
	if len(eng.Args) > 0 {
		defaultEngine.Args = eng.Args
	}
	if eng.ViewportWidth > 0 && eng.ViewportHeight > 0 {
		defaultEngine.ViewportWidth = eng.ViewportWidth
		defaultEngine.ViewportHeight = eng.ViewportHeight
	}
	if eng.DashboardURL != "" {
		defaultEngine.DashboardURL = eng.DashboardURL
	}
	if eng.UserAgent != "" {
		defaultEngine.UserAgent = eng.UserAgent
	}
	if eng.Timeout > 0 {
		defaultEngine.Timeout = eng.Timeout
	}
	if eng.PollEvery > 0 {
		defaultEngine.PollEvery = eng.PollEvery
	}
	if eng.NavigationTimeout > 0 {
		defaultEngine.NavigationTimeout = eng.NavigationTimeout
	}
	if eng.QueryTimeout > 0 {
		defaultEngine.QueryTimeout = eng.QueryTimeout
	}
	if eng.PollInterval > 0 {
		defaultEngine.PollInterval = eng.PollInterval
	}
	if eng.TableAttempts > 0 {
		defaultEngine.TableAttempts = eng.TableAttempts
	}
	if eng.CubePlaceholder != "" {
		defaultEngine.CubePlaceholder = eng.CubePlaceholder
	}
	if len(eng.Categories) > 0 {
		defaultEngine.Categories = eng.Categories
	}
	if len(eng.Fields) > 0 {
		defaultEngine.Fields = eng.Fields
	}
	overridePacing(&defaultEngine.Pacing, eng.Pacing)
}

func overridePacing(dst *Pacing, src Pacing) {
	set := func(d *time.Duration, v time.Duration) {
		if v > 0 {
			*d = v
		}
	}
	set(&dst.AfterCubeSelect, src.AfterCubeSelect)
	set(&dst.AfterMeasureClick, src.AfterMeasureClick)
	set(&dst.AfterScroll, src.AfterScroll)
	set(&dst.AfterDrag, src.AfterDrag)
	set(&dst.BeforeFilter, src.BeforeFilter)
	set(&dst.AfterFilterOpen, src.AfterFilterOpen)
	set(&dst.BeforeMemberPick, src.BeforeMemberPick)
	set(&dst.AfterQuery, src.AfterQuery)
}

func (e *Engine) isHeadless() bool {
	return e.Headless == nil || *e.Headless
}
