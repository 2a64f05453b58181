package hermes

import (
	"time"
)

const defaultAppName = "hermes"

// Extractor drives the dashboard extractions of one application.
type Extractor struct {
	Config     *configService
	Name       string
	Logger     Logger
	engine     *Engine
	launcher   Launcher
	isLocalEnv bool
	startTime  time.Time
}

// NewExtractor builds an extractor from the environment. The first engine,
// if any, overrides the configured defaults.
func NewExtractor(name string, engines ...Engine) *Extractor {
	config := newConfig()
	if name == "" {
		name = config.EnvString("APP_NAME", defaultAppName)
	}
	defaultEngine := engineFromConfig(config)
	if len(engines) > 0 {
		eng := engines[0]
		overrideEngineDefaults(&defaultEngine, &eng)
	}
	return newExtractor(name, config, newDefaultLogger(config, name), defaultEngine)
}

func newExtractor(name string, config *configService, logger Logger, eng Engine) *Extractor {
	return &Extractor{
		Config:     config,
		Name:       name,
		Logger:     logger,
		engine:     &eng,
		isLocalEnv: isLocalEnv(config.GetString("APP_ENV")),
	}
}

// SetLauncher replaces the browser launcher picked from the engine adapter.
func (app *Extractor) SetLauncher(launcher Launcher) *Extractor {
	app.launcher = launcher
	return app
}

func (app *Extractor) SetLogger(logger Logger) *Extractor {
	app.Logger = logger
	return app
}

func (app *Extractor) Engine() Engine {
	return *app.engine
}

func (app *Extractor) getLauncher() (Launcher, error) {
	if app.launcher != nil {
		return app.launcher, nil
	}
	return launcherFor(app.engine.Adapter)
}

func (app *Extractor) Start() {
	app.startTime = time.Now()
	app.Logger.Info("Extractor %s started! 🚀", app.Name)
}

func (app *Extractor) Stop() {
	defer func() {
		if r := recover(); r != nil {
			app.Logger.Error("Recovered in Stop: %v", r)
		}
	}()
	app.Logger.Info("Extractor stopped in ⚡ %v", time.Since(app.startTime))
	if closer, ok := app.Logger.(interface{ Close() }); ok {
		closer.Close()
	}
}
