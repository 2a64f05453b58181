package hermes

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

type rodBrowser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rodPage
}

// launchRod initializes and runs a Rod browser with a single page.
func launchRod(ctx context.Context, engine *Engine) (Browser, error) {
	l := launcher.New().
		Context(ctx).
		Headless(engine.isHeadless()).
		Devtools(!engine.isHeadless()).
		NoSandbox(true).
		Set(flags.Flag("window-size"), strconv.Itoa(engine.ViewportWidth)+","+strconv.Itoa(engine.ViewportHeight))
	for _, arg := range engine.Args {
		name, value := splitFlag(arg)
		if value == "" {
			l = l.Set(flags.Flag(name))
		} else {
			l = l.Set(flags.Flag(name), value)
		}
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("open page: %w", err)
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  engine.ViewportWidth,
		Height: engine.ViewportHeight,
	})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("error setting viewport: %w", err)
	}
	if engine.UserAgent != "" {
		err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: engine.UserAgent})
		if err != nil {
			_ = browser.Close()
			l.Kill()
			return nil, fmt.Errorf("error setting user agent: %s", err.Error())
		}
	}

	return &rodBrowser{
		launcher: l,
		browser:  browser,
		page:     &rodPage{page: page},
	}, nil
}

func (b *rodBrowser) Page() Page {
	return b.page
}

// Close always kills the launched process, even when the CDP close fails.
func (b *rodBrowser) Close() error {
	defer b.launcher.Cleanup()
	err := b.browser.Close()
	b.launcher.Kill()
	return err
}

type rodPage struct {
	page *rod.Page
}

// Navigate and every element action run on a clone bound to the caller's
// context, so rod's internal retries stop when it ends.
func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (p *rodPage) Elements(loc Locator) ([]Element, error) {
	var (
		found rod.Elements
		err   error
	)
	if loc.Kind == ByXPath {
		found, err = p.page.ElementsX(loc.Value)
	} else {
		found, err = p.page.Elements(loc.CSSSelector())
	}
	if err != nil {
		return nil, err
	}
	elements := make([]Element, 0, len(found))
	for _, el := range found {
		elements = append(elements, &rodElement{el: el})
	}
	return elements, nil
}

// Drag performs a mouse-driven drag, which is what jQuery UI draggables listen to.
func (p *rodPage) Drag(ctx context.Context, source, target Element) error {
	from, err := rodCenter(ctx, source)
	if err != nil {
		return err
	}
	to, err := rodCenter(ctx, target)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	mouse := p.page.Mouse
	if err := mouse.MoveTo(*from); err != nil {
		return err
	}
	if err := mouse.Down(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	if err := mouse.MoveLinear(*to, 10); err != nil {
		return err
	}
	return mouse.Up(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) HTML() (string, error) {
	return p.page.HTML()
}

func rodCenter(ctx context.Context, el Element) (*proto.Point, error) {
	re, ok := el.(*rodElement)
	if !ok {
		return nil, fmt.Errorf("element %T does not belong to a rod page", el)
	}
	shape, err := re.el.Context(ctx).Shape()
	if err != nil {
		return nil, err
	}
	point := shape.OnePointInside()
	if point == nil {
		return nil, fmt.Errorf("element has no visible area")
	}
	return point, nil
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

func (e *rodElement) Visible() (bool, error) {
	return e.el.Visible()
}

func (e *rodElement) Enabled() (bool, error) {
	disabled, err := e.el.Property("disabled")
	if err != nil {
		return false, err
	}
	return !disabled.Bool(), nil
}

// Click waits for the element to be interactable first, retrying while it
// is covered, until ctx ends.
func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) ScrollIntoView(ctx context.Context) error {
	return e.el.Context(ctx).ScrollIntoView()
}

func (e *rodElement) HTML() (string, error) {
	return e.el.HTML()
}

func (e *rodElement) Options() ([]string, error) {
	options, err := e.el.Elements("option")
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(options))
	for _, option := range options {
		text, err := option.Text()
		if err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func (e *rodElement) SelectOption(ctx context.Context, text string) error {
	return e.el.Context(ctx).Select([]string{text}, true, rod.SelectorTypeText)
}
