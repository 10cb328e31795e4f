// Package browser wraps a go-rod controlled Chromium with stealth pages and
// exposes the small page surface the harvester, metadata sources and label
// prober depend on.
package browser

import (
	"context"
	"fmt"
	"time"

	"clipharvest/pkg/config"
	"clipharvest/pkg/logger"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Options configure the launched browser.
type Options struct {
	Bin             string
	Headless        bool
	UserDataDir     string
	NavigateTimeout time.Duration
	Zoom            float64
}

// OptionsFromConfig maps the browser config section.
func OptionsFromConfig(cfg config.BrowserConfig) Options {
	return Options{
		Bin:             cfg.Bin,
		Headless:        cfg.Headless,
		UserDataDir:     cfg.UserDataDir,
		NavigateTimeout: cfg.NavigateTimeout,
		Zoom:            cfg.Zoom,
	}
}

// Session owns one browser process. Pages are opened sequentially from it.
type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	opts     Options
	logger   logger.Logger
}

// Launch starts a browser and connects to it.
func Launch(ctx context.Context, opts Options, log logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if opts.NavigateTimeout <= 0 {
		opts.NavigateTimeout = 60 * time.Second
	}

	bin := opts.Bin
	if bin == "" {
		bin, _ = launcher.LookPath()
	}

	l := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		Leakless(false).
		Set("disable-gpu")
	if bin != "" {
		l = l.Bin(bin)
	}
	if opts.UserDataDir != "" {
		l = l.UserDataDir(opts.UserDataDir)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(u).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	log.InfoWithFields("Browser launched", map[string]interface{}{
		"headless": opts.Headless,
		"bin":      bin,
	})

	return &Session{browser: b, launcher: l, opts: opts, logger: log}, nil
}

// SetCookies installs cookies for every page of the session.
func (s *Session) SetCookies(cookies []*proto.NetworkCookieParam) error {
	if len(cookies) == 0 {
		return nil
	}
	if err := s.browser.SetCookies(cookies); err != nil {
		return fmt.Errorf("failed to set cookies: %w", err)
	}
	s.logger.DebugWithFields("Cookies installed", map[string]interface{}{"count": len(cookies)})
	return nil
}

// NewPage opens a stealth page.
func (s *Session) NewPage() (*Page, error) {
	p, err := stealth.Page(s.browser)
	if err != nil {
		return nil, fmt.Errorf("failed to create stealth page: %w", err)
	}
	return &Page{page: p, timeout: s.opts.NavigateTimeout, zoom: s.opts.Zoom}, nil
}

// Close shuts the browser down and kills the process.
func (s *Session) Close() error {
	err := s.browser.Close()
	s.launcher.Kill()
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}
