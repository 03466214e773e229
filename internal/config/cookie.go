package config

import (
	"net/http"
	"time"
)

type CookieSameSite string

const (
	CookieSameSiteNone   CookieSameSite = "None"
	CookieSameSiteLax    CookieSameSite = "Lax"
	CookieSameSiteStrict CookieSameSite = "Strict"
)

type CookieTemplate struct {
	Name     string         `yaml:"name"`
	MaxAge   int            `yaml:"maxAge"`
	Path     string         `yaml:"path"`
	Domain   string         `yaml:"domain"`
	Secure   bool           `yaml:"secure"`
	SameSite CookieSameSite `yaml:"sameSite" validate:"omitempty,oneof=None Lax Strict"`
	HTTPOnly bool           `yaml:"httpOnly"`
}

// DefaultStateCookie matches what platforms expect of the login leg: a short
// lived cookie that survives the cross-site form post back to the tool.
func DefaultStateCookie(basePath string, ttl time.Duration) CookieTemplate {
	return CookieTemplate{
		Name:     "lti-1_3-",
		MaxAge:   int(ttl / time.Second),
		Path:     basePath,
		Secure:   true,
		SameSite: CookieSameSiteNone,
		HTTPOnly: true,
	}
}

func DefaultLaunchCookie(basePath string, ttl time.Duration) CookieTemplate {
	return CookieTemplate{
		Name:     "lti-1_3-launch",
		MaxAge:   int(ttl / time.Second),
		Path:     basePath,
		Secure:   true,
		SameSite: CookieSameSiteNone,
		HTTPOnly: true,
	}
}

// ApplyCookieDefaults fills the cookie templates that were left unconfigured.
func (c *Config) ApplyCookieDefaults() {
	if c.Cookies.State.Name == "" {
		c.Cookies.State = DefaultStateCookie(c.LTI.BasePath, c.SessionStore.StateTTL)
	}
	if c.Cookies.Launch.Name == "" {
		c.Cookies.Launch = DefaultLaunchCookie(c.LTI.BasePath, c.SessionStore.LaunchTTL)
	}
}

func (ct *CookieTemplate) ToCookie(value string) *http.Cookie {
	return ct.ToNamedCookie(ct.Name, value)
}

// ToNamedCookie applies the template under a different cookie name.
func (ct *CookieTemplate) ToNamedCookie(name, value string) *http.Cookie {
	var sameSite http.SameSite
	switch ct.SameSite {
	case CookieSameSiteNone:
		sameSite = http.SameSiteNoneMode
	case CookieSameSiteLax:
		sameSite = http.SameSiteLaxMode
	case CookieSameSiteStrict:
		sameSite = http.SameSiteStrictMode
	}

	return &http.Cookie{
		Name:     name,
		Value:    value,
		MaxAge:   ct.MaxAge,
		Path:     ct.Path,
		Domain:   ct.Domain,
		Secure:   ct.Secure,
		HttpOnly: ct.HTTPOnly,
		SameSite: sameSite,
	}
}
