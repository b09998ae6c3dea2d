package server

import (
	"net/url"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/agileboard/internal/api/v1"
	"github.com/gosuda/agileboard/internal/api/ws"
	"github.com/gosuda/agileboard/internal/auth"
	"github.com/gosuda/agileboard/internal/config"
)

func registerAuthRoutes(api huma.API, authSvc *auth.Service, settings v1.AuthConfig) {
	v1.RegisterAuthRoutes(api, authSvc, settings)
}

func registerAPIRoutes(api huma.API, deps Deps, hub *ws.Hub, cfg *config.Config) {
	v1.RegisterUserRoutes(api, deps.Store, deps.Auth)
	v1.RegisterProjectRoutes(api, deps.Store)
	v1.RegisterInvitationRoutes(api, deps.Store, deps.Notifier, v1.InvitationConfig{
		TTL:       cfg.Invitation.TTL,
		PublicURL: cfg.Server.PublicURL,
	})
	v1.RegisterTaskRoutes(api, deps.Store, hub, deps.Notifier, cfg.Server.PublicURL)
	v1.RegisterBoardRoutes(api, deps.Store)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/board/{projectID}", hub.ServeBoard)
}

// authSettings derives cookie and OAuth settings from the configuration.
// Providers without credentials are left out.
func authSettings(cfg *config.Config) v1.AuthConfig {
	providers := make(map[string]v1.OAuthProvider)
	callback := func(name string) string {
		return cfg.Server.PublicURL + "/api/v1/auth/oauth/" + name + "/callback"
	}
	if c := cfg.OAuth.GitHub; c.Enabled() {
		providers["github"] = auth.NewGitHubProvider(c.ClientID, c.ClientSecret, callback("github"))
	}
	if c := cfg.OAuth.Google; c.Enabled() {
		providers["google"] = auth.NewGoogleProvider(c.ClientID, c.ClientSecret, callback("google"))
	}

	return v1.AuthConfig{
		AccessTTL:    cfg.JWT.AccessTTL,
		CookieSecure: cfg.Server.CookieSecure,
		CookieDomain: cfg.Server.CookieDomain,
		PublicURL:    cfg.Server.PublicURL,
		OAuth:        providers,
	}
}

func hostOf(origin string) string {
	u, err := url.Parse(origin)
	if err != nil {
		return ""
	}
	return u.Host
}
