package hermes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

type playwrightBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    *playwrightPage
}

// launchPlaywright runs the Playwright driver and opens one page. Outside a
// local environment the driver and browsers are installed first.
func launchPlaywright(ctx context.Context, engine *Engine) (Browser, error) {
	if engine.isHeadless() {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{engine.BrowserType}}); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("run playwright: %w", err)
	}

	options := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(engine.isHeadless()),
		Devtools: playwright.Bool(!engine.isHeadless()),
		Args:     engine.Args,
	}
	var browser playwright.Browser
	switch engine.BrowserType {
	case "chromium", "":
		browser, err = pw.Chromium.Launch(options)
	case "firefox":
		browser, err = pw.Firefox.Launch(options)
	case "webkit":
		browser, err = pw.WebKit.Launch(options)
	default:
		err = fmt.Errorf("unsupported browser type: %s", engine.BrowserType)
	}
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	page, err := browser.NewPage(playwright.BrowserNewPageOptions{
		UserAgent: playwright.String(engine.UserAgent),
		Viewport: &playwright.Size{
			Width:  engine.ViewportWidth,
			Height: engine.ViewportHeight,
		},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(float64(engine.Timeout.Milliseconds()))

	return &playwrightBrowser{
		pw:      pw,
		browser: browser,
		page:    &playwrightPage{page: page},
	}, nil
}

func (b *playwrightBrowser) Page() Page {
	return b.page
}

// Close stops the driver even when closing the browser fails.
func (b *playwrightBrowser) Close() error {
	return errors.Join(b.browser.Close(), b.pw.Stop())
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwrightTimeout(ctx),
	})
	if err != nil {
		return err
	}
	if res != nil && !res.Ok() {
		return fmt.Errorf("failed to load page: %d %s", res.Status(), res.StatusText())
	}
	return nil
}

func (p *playwrightPage) Elements(loc Locator) ([]Element, error) {
	selector := loc.CSSSelector()
	if loc.Kind == ByXPath {
		selector = "xpath=" + loc.Value
	}
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	elements := make([]Element, 0, len(handles))
	for _, handle := range handles {
		elements = append(elements, &playwrightElement{handle: handle})
	}
	return elements, nil
}

func (p *playwrightPage) Drag(ctx context.Context, source, target Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fromX, fromY, err := playwrightCenter(source)
	if err != nil {
		return err
	}
	toX, toY, err := playwrightCenter(target)
	if err != nil {
		return err
	}
	mouse := p.page.Mouse()
	if err := mouse.Move(fromX, fromY); err != nil {
		return err
	}
	if err := mouse.Down(); err != nil {
		return err
	}
	if err := mouse.Move(toX, toY, playwright.MouseMoveOptions{Steps: playwright.Int(10)}); err != nil {
		return err
	}
	return mouse.Up()
}

func (p *playwrightPage) HTML() (string, error) {
	return p.page.Content()
}

func playwrightCenter(el Element) (float64, float64, error) {
	pe, ok := el.(*playwrightElement)
	if !ok {
		return 0, 0, fmt.Errorf("element %T does not belong to a playwright page", el)
	}
	box, err := pe.handle.BoundingBox()
	if err != nil {
		return 0, 0, err
	}
	if box == nil {
		return 0, 0, fmt.Errorf("element has no bounding box")
	}
	return box.X + box.Width/2, box.Y + box.Height/2, nil
}

type playwrightElement struct {
	handle playwright.ElementHandle
}

func (e *playwrightElement) Text() (string, error) {
	return e.handle.InnerText()
}

func (e *playwrightElement) Visible() (bool, error) {
	return e.handle.IsVisible()
}

func (e *playwrightElement) Enabled() (bool, error) {
	return e.handle.IsEnabled()
}

func (e *playwrightElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.handle.Click(playwright.ElementHandleClickOptions{Timeout: playwrightTimeout(ctx)})
}

func (e *playwrightElement) ScrollIntoView(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.handle.ScrollIntoViewIfNeeded(playwright.ElementHandleScrollIntoViewIfNeededOptions{
		Timeout: playwrightTimeout(ctx),
	})
}

func (e *playwrightElement) HTML() (string, error) {
	html, err := e.handle.Evaluate("el => el.outerHTML")
	if err != nil {
		return "", err
	}
	s, ok := html.(string)
	if !ok {
		return "", fmt.Errorf("unexpected outerHTML type %T", html)
	}
	return s, nil
}

func (e *playwrightElement) Options() ([]string, error) {
	options, err := e.handle.QuerySelectorAll("option")
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(options))
	for _, option := range options {
		text, err := option.InnerText()
		if err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func (e *playwrightElement) SelectOption(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	labels := []string{text}
	_, err := e.handle.SelectOption(playwright.SelectOptionValues{Labels: &labels},
		playwright.ElementHandleSelectOptionOptions{Timeout: playwrightTimeout(ctx)})
	return err
}

// playwrightTimeout maps the ctx deadline to playwright's millisecond
// timeout. Without a deadline the page default applies.
func playwrightTimeout(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ms := float64(time.Until(deadline).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(ms)
}
