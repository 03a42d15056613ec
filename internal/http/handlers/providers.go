package handlers

import (
	"errors"
	"net/http"

	"prodtrans/internal/domain"
)

func (a *App) ProvidersList(w http.ResponseWriter, r *http.Request) {
	listings, err := a.Gateway.Providers(r.Context())
	if err != nil {
		a.gatewayError(w, r, err, "failed to list providers")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": listings})
}

// LanguagesList relays the provider's language matrix as-is.
func (a *App) LanguagesList(w http.ResponseWriter, r *http.Request) {
	languages, err := a.Gateway.Languages(r.Context())
	if err != nil {
		a.gatewayError(w, r, err, "failed to list languages")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"languages": languages})
}

func (a *App) RoutingProfilesList(w http.ResponseWriter, r *http.Request) {
	profiles, err := a.Gateway.RoutingProfiles(r.Context())
	if err != nil {
		a.gatewayError(w, r, err, "failed to list routing profiles")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": profiles})
}

func (a *App) gatewayError(w http.ResponseWriter, r *http.Request, err error, message string) {
	a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg(message)
	if errors.Is(err, domain.ErrProviderRequest) ||
		errors.Is(err, domain.ErrProviderResponse) ||
		errors.Is(err, domain.ErrMalformedResponse) {
		a.error(w, http.StatusBadGateway, "provider_error", message)
		return
	}
	a.error(w, http.StatusInternalServerError, "internal", message)
}
