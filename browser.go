package hermes

import (
	"context"
	"fmt"
	"time"
)

// Element is one resolved node of the remote UI.
type Element interface {
	Text() (string, error)
	Visible() (bool, error)
	Enabled() (bool, error)
	// Actions may retry inside the adapter and must give up once ctx ends.
	Click(ctx context.Context) error
	ScrollIntoView(ctx context.Context) error
	HTML() (string, error)
	// Options lists the visible texts of a <select>'s options.
	Options() ([]string, error)
	SelectOption(ctx context.Context, text string) error
}

// Page is the browser capability the workflow drives. Elements never waits;
// waiting is layered on top by the Session.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Elements(loc Locator) ([]Element, error)
	Drag(ctx context.Context, source, target Element) error
	HTML() (string, error)
}

// Browser owns the launched process and its single page.
type Browser interface {
	Page() Page
	Close() error
}

// Launcher starts a browser configured by the engine.
type Launcher func(ctx context.Context, engine *Engine) (Browser, error)

func launcherFor(adapter string) (Launcher, error) {
	switch adapter {
	case RodEngine, "":
		return launchRod, nil
	case PlayWrightEngine:
		return launchPlaywright, nil
	default:
		return nil, fmt.Errorf("unsupported browser adapter: %s", adapter)
	}
}

// Session is one live automation session. It is owned by a single run and
// must be closed on every exit path.
type Session struct {
	browser Browser
	page    Page
	engine  *Engine
	logger  Logger
}

// OpenSession launches the browser. Any failure is reported as ErrSessionStart.
func OpenSession(ctx context.Context, launch Launcher, engine *Engine, logger Logger) (*Session, error) {
	browser, err := launch(ctx, engine)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionStart, err)
	}
	if browser == nil {
		return nil, fmt.Errorf("%w: launcher returned no browser", ErrSessionStart)
	}
	if browser.Page() == nil {
		if err := browser.Close(); err != nil {
			logger.Error("Failed to close browser without page: %v", err)
		}
		return nil, fmt.Errorf("%w: launcher returned no page", ErrSessionStart)
	}
	logger.Info("Browser session started (%s, headless=%v)", engine.Adapter, engine.isHeadless())
	return &Session{
		browser: browser,
		page:    browser.Page(),
		engine:  engine,
		logger:  logger,
	}, nil
}

// Close terminates the browser. Errors are logged, never returned.
func (s *Session) Close() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered while closing browser: %v", r)
		}
	}()
	if err := s.browser.Close(); err != nil {
		s.logger.Error("Failed to close browser: %v", err)
		return
	}
	s.logger.Info("Browser session closed")
}

// Navigate loads url, bounded by the engine navigation timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	nctx, cancel := bounded(ctx, s.engine.NavigationTimeout)
	defer cancel()
	if err := s.page.Navigate(nctx, url); err != nil {
		return fmt.Errorf("%w: navigate: %w", ErrSessionStart, err)
	}
	return nil
}

// snapshot returns the current page markup for diagnostics.
func (s *Session) snapshot() string {
	html, err := s.page.HTML()
	if err != nil {
		return ""
	}
	return html
}

// bounded derives a context that ends after d. A zero d adds no bound.
func bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// pause sleeps for d unless ctx ends first.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
