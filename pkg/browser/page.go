package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Page is a single browser tab.
type Page struct {
	page    *rod.Page
	timeout time.Duration
	zoom    float64
}

// timed returns the page bound to ctx with a timeout and the func that
// releases the timer.
func timed(ctx context.Context, page *rod.Page, d time.Duration) (*rod.Page, func()) {
	pg := page.Context(ctx).Timeout(d)
	return pg, func() { pg.CancelTimeout() }
}

// Navigate loads url and waits for the load event.
func (p *Page) Navigate(ctx context.Context, url string) error {
	pg, cancel := timed(ctx, p.page, p.timeout)
	defer cancel()
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("failed waiting for %s to load: %w", url, err)
	}
	return nil
}

// ApplyZoom scales the page so more candidates fit in the viewport.
func (p *Page) ApplyZoom(ctx context.Context) error {
	if p.zoom <= 0 || p.zoom == 1 {
		return nil
	}
	zoom := fmt.Sprintf("%d%%", int(p.zoom*100))
	_, err := p.page.Context(ctx).Eval(`(z) => { document.body.style.zoom = z }`, zoom)
	if err != nil {
		return fmt.Errorf("failed to zoom page: %w", err)
	}
	return nil
}

// ScrollMetrics returns window.scrollY and the document scroll height.
func (p *Page) ScrollMetrics(ctx context.Context) (int, int, error) {
	res, err := p.page.Context(ctx).Eval(`() => [
		Math.round(window.scrollY || document.documentElement.scrollTop || 0),
		Math.max(document.documentElement.scrollHeight || 0, document.body ? document.body.scrollHeight : 0)
	]`)
	if err != nil {
		return 0, 0, err
	}
	arr := res.Value.Arr()
	if len(arr) != 2 {
		return 0, 0, fmt.Errorf("unexpected scroll metrics %s", res.Value.String())
	}
	return arr[0].Int(), arr[1].Int(), nil
}

// ScrollTo scrolls the window to vertical offset y.
func (p *Page) ScrollTo(ctx context.Context, y int) error {
	_, err := p.page.Context(ctx).Eval(`(y) => window.scrollTo(0, y)`, y)
	return err
}

// Hrefs returns the raw href attribute of every element matching selector.
func (p *Page) Hrefs(ctx context.Context, selector string) ([]string, error) {
	res, err := p.page.Context(ctx).Eval(`(sel) => Array.from(document.querySelectorAll(sel))
		.map(el => el.getAttribute('href'))
		.filter(h => typeof h === 'string' && h.length > 0)`, selector)
	if err != nil {
		return nil, err
	}

	values := res.Value.Arr()
	hrefs := make([]string, 0, len(values))
	for _, v := range values {
		hrefs = append(hrefs, v.Str())
	}
	return hrefs, nil
}

// WaitVisible waits up to timeout for selector to become visible.
func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	pg, cancel := timed(ctx, p.page, timeout)
	defer cancel()
	el, err := pg.Element(selector)
	if err != nil {
		return fmt.Errorf("element %s not found: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("element %s never became visible: %w", selector, err)
	}
	return nil
}

// ClickText clicks the first element matching selector whose text matches
// the regular expression textRegex, waiting at most timeout for it.
func (p *Page) ClickText(ctx context.Context, selector, textRegex string, timeout time.Duration) error {
	pg, cancel := timed(ctx, p.page, timeout)
	defer cancel()
	el, err := pg.ElementR(selector, textRegex)
	if err != nil {
		return fmt.Errorf("no %s matching %q: %w", selector, textRegex, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

// HTML returns the serialized document.
func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

// EvalString evaluates js, a function expression, and returns its string result.
func (p *Page) EvalString(ctx context.Context, js string, args ...interface{}) (string, error) {
	res, err := p.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// Close closes the tab.
func (p *Page) Close() error {
	return p.page.Close()
}
