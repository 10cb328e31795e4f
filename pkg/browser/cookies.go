package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-rod/rod/lib/proto"
)

// cookie is the subset of fields shared by CDP cookie dumps and
// storage-state exports.
type cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

// LoadCookies reads a cookie file. Both a bare JSON array and an object with
// a "cookies" array are accepted.
func LoadCookies(path string) ([]*proto.NetworkCookieParam, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies file: %w", err)
	}
	return ParseCookies(data)
}

// ParseCookies decodes cookie JSON. See LoadCookies.
func ParseCookies(data []byte) ([]*proto.NetworkCookieParam, error) {
	var raw []cookie
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var state struct {
			Cookies []cookie `json:"cookies"`
		}
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, fmt.Errorf("failed to parse cookies file: %w", err)
		}
		raw = state.Cookies
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse cookies file: %w", err)
	}

	out := make([]*proto.NetworkCookieParam, 0, len(raw))
	for _, c := range raw {
		if c.Name == "" || c.Domain == "" {
			continue
		}
		param := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if param.Path == "" {
			param.Path = "/"
		}
		// session cookies are exported with expires -1
		if c.Expires > 0 {
			param.Expires = proto.TimeSinceEpoch(c.Expires)
		}
		switch strings.ToLower(c.SameSite) {
		case "lax":
			param.SameSite = proto.NetworkCookieSameSiteLax
		case "strict":
			param.SameSite = proto.NetworkCookieSameSiteStrict
		case "none", "no_restriction":
			param.SameSite = proto.NetworkCookieSameSiteNone
		}
		out = append(out, param)
	}
	return out, nil
}

// MSTokenCookie returns the TikTok msToken cookie.
func MSTokenCookie(token string) *proto.NetworkCookieParam {
	return &proto.NetworkCookieParam{
		Name:   "msToken",
		Value:  token,
		Domain: ".tiktok.com",
		Path:   "/",
		Secure: true,
	}
}
