package pipeline

import (
	"context"
	"time"

	"clipharvest/pkg/browser"
	"clipharvest/pkg/config"
	"clipharvest/pkg/errors"
	"clipharvest/pkg/harvester"
	"clipharvest/pkg/logger"
	"clipharvest/pkg/tiktok"
	"clipharvest/pkg/youtube"

	"github.com/go-rod/rod/lib/proto"
)

// Page is the browser page surface the pipelines drive.
type Page interface {
	harvester.Page
	tiktok.Page
	youtube.Page
	ApplyZoom(ctx context.Context) error
	ClickText(ctx context.Context, selector, textRegex string, timeout time.Duration) error
	Close() error
}

// Browser is one browser session. Pages are used one at a time.
type Browser interface {
	OpenPage() (Page, error)
	Close() error
}

// Launcher starts a browser session with cookies already installed.
type Launcher func(ctx context.Context) (Browser, error)

// SessionLauncher launches go-rod sessions configured from cfg. The cookies
// file and the TikTok msToken are installed before the first page opens.
func SessionLauncher(cfg *config.Config, log logger.Logger) Launcher {
	return func(ctx context.Context) (Browser, error) {
		cookies, err := sessionCookies(cfg)
		if err != nil {
			return nil, err
		}

		s, err := browser.Launch(ctx, browser.OptionsFromConfig(cfg.Browser), log)
		if err != nil {
			return nil, err
		}
		if err := s.SetCookies(cookies); err != nil {
			s.Close()
			return nil, err
		}
		return &session{s: s}, nil
	}
}

func sessionCookies(cfg *config.Config) ([]*proto.NetworkCookieParam, error) {
	var cookies []*proto.NetworkCookieParam
	if cfg.Browser.CookiesFile != "" {
		loaded, err := browser.LoadCookies(cfg.Browser.CookiesFile)
		if err != nil {
			return nil, errors.Wrap(errors.ErrorTypeConfig, "failed to load cookies", err)
		}
		cookies = append(cookies, loaded...)
	}
	if cfg.TikTok.MSToken != "" {
		cookies = append(cookies, browser.MSTokenCookie(cfg.TikTok.MSToken))
	}
	return cookies, nil
}

// session adapts browser.Session to Browser.
type session struct {
	s *browser.Session
}

func (b *session) OpenPage() (Page, error) {
	p, err := b.s.NewPage()
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (b *session) Close() error {
	return b.s.Close()
}
