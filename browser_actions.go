package hermes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PlacementOutcome is the result of a best-effort field drag.
type PlacementOutcome int

const (
	Placed PlacementOutcome = iota
	SourceMissing
	DragFailed
)

func (o PlacementOutcome) String() string {
	switch o {
	case Placed:
		return "placed"
	case SourceMissing:
		return "source missing"
	default:
		return "drag failed"
	}
}

func interactable(el Element) bool {
	visible, err := el.Visible()
	if err != nil || !visible {
		return false
	}
	enabled, err := el.Enabled()
	return err == nil && enabled
}

// WaitInteractable blocks until an element matching loc is visible and
// enabled. A zero timeout means the engine default.
func (s *Session) WaitInteractable(ctx context.Context, loc Locator, timeout time.Duration) (Element, error) {
	if timeout <= 0 {
		timeout = s.engine.Timeout
	}
	deadline := time.Now().Add(timeout)
	for {
		elements, err := s.page.Elements(loc)
		if err == nil {
			for _, el := range elements {
				if interactable(el) {
					return el, nil
				}
			}
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s after %v", ErrElementTimeout, loc, timeout)
		}
		if err := pause(ctx, s.engine.PollEvery); err != nil {
			return nil, err
		}
	}
}

// WaitPresent blocks until at least one element matches loc.
func (s *Session) WaitPresent(ctx context.Context, loc Locator, timeout time.Duration) ([]Element, error) {
	if timeout <= 0 {
		timeout = s.engine.Timeout
	}
	deadline := time.Now().Add(timeout)
	for {
		elements, err := s.page.Elements(loc)
		if err == nil && len(elements) > 0 {
			return elements, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s after %v", ErrElementTimeout, loc, timeout)
		}
		if err := pause(ctx, s.engine.PollEvery); err != nil {
			return nil, err
		}
	}
}

// First resolves the first element matching loc without waiting.
func (s *Session) First(loc Locator) (Element, error) {
	elements, err := s.page.Elements(loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrElementNotFound, loc, err)
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, loc)
	}
	return elements[0], nil
}

// act runs one element action under the engine timeout. An element that
// stays covered or detached surfaces as ErrElementTimeout instead of
// blocking the run.
func (s *Session) act(ctx context.Context, what string, action func(context.Context) error) error {
	actx, cancel := bounded(ctx, s.engine.Timeout)
	defer cancel()
	err := action(actx)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", what, ctxErr)
	}
	if actx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %v", ErrElementTimeout, what, s.engine.Timeout)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// Click waits for a mandatory element and clicks it.
func (s *Session) Click(ctx context.Context, loc Locator) error {
	el, err := s.WaitInteractable(ctx, loc, 0)
	if err != nil {
		return err
	}
	return s.act(ctx, "click "+loc.String(), el.Click)
}

// ClickFirst clicks the first match of a mandatory element without waiting.
func (s *Session) ClickFirst(ctx context.Context, loc Locator) error {
	el, err := s.First(loc)
	if err != nil {
		return err
	}
	return s.act(ctx, "click "+loc.String(), el.Click)
}

// TryClick clicks el and reports whether it worked. Used where absence or a
// stale element is expected.
func (s *Session) TryClick(ctx context.Context, el Element) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return s.act(ctx, "click", el.Click) == nil
}

// SelectDropdownOption picks the first option accepted by match, skipping
// blanks and the placeholder option. It returns the selected option text.
func (s *Session) SelectDropdownOption(ctx context.Context, loc Locator, match func(string) bool) (string, error) {
	dropdown, err := s.WaitInteractable(ctx, loc, 0)
	if err != nil {
		return "", err
	}
	options, err := dropdown.Options()
	if err != nil {
		return "", fmt.Errorf("read options of %s: %w", loc, err)
	}
	for _, option := range options {
		text := strings.TrimSpace(option)
		if text == "" || strings.EqualFold(text, s.engine.CubePlaceholder) {
			continue
		}
		if !match(text) {
			continue
		}
		err := s.act(ctx, fmt.Sprintf("select %q", text), func(actx context.Context) error {
			return dropdown.SelectOption(actx, option)
		})
		if err != nil {
			return "", err
		}
		return text, nil
	}
	return "", fmt.Errorf("%w: %s (%d options)", ErrNoMatchingOption, loc, len(options))
}

// DragTo drags the first visible, enabled candidate onto target.
func (s *Session) DragTo(ctx context.Context, candidates []Locator, target Locator) (PlacementOutcome, error) {
	var source Element
	for _, loc := range candidates {
		elements, err := s.page.Elements(loc)
		if err != nil {
			continue
		}
		for _, el := range elements {
			if interactable(el) {
				source = el
				break
			}
		}
		if source != nil {
			break
		}
	}
	if source == nil {
		return SourceMissing, fmt.Errorf("%w: %v", ErrElementNotFound, candidates)
	}

	if err := s.act(ctx, "scroll into view", source.ScrollIntoView); err != nil {
		return DragFailed, err
	}
	if err := pause(ctx, s.engine.Pacing.AfterScroll); err != nil {
		return DragFailed, err
	}
	dst, err := s.First(target)
	if err != nil {
		return DragFailed, err
	}
	err = s.act(ctx, "drag to "+target.String(), func(actx context.Context) error {
		return s.page.Drag(actx, source, dst)
	})
	if err != nil {
		return DragFailed, err
	}
	if err := pause(ctx, s.engine.Pacing.AfterDrag); err != nil {
		return DragFailed, err
	}
	return Placed, nil
}
