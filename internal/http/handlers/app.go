package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"prodtrans/internal/domain"
	"prodtrans/internal/infra"
	"prodtrans/internal/providers/intento"
	"prodtrans/internal/translate"
)

// Translator runs record translations for the API.
type Translator interface {
	TranslateRecord(ctx context.Context, req translate.RecordRequest) (*translate.RecordResult, error)
}

// Gateway exposes the provider metadata reads served under /v1.
type Gateway interface {
	Providers(ctx context.Context) ([]intento.ProviderListing, error)
	Languages(ctx context.Context) (json.RawMessage, error)
	RoutingProfiles(ctx context.Context) ([]intento.RoutingProfile, error)
}

var _ Gateway = (*intento.Client)(nil)

type App struct {
	Translator Translator
	Cache      domain.CacheRepository
	Gateway    Gateway
	Logger     infra.Logger
}

func NewApp(translator Translator, cache domain.CacheRepository, gateway Gateway, logger *infra.Logger) *App {
	l := infra.Logger(zerolog.New(io.Discard))
	if logger != nil {
		l = *logger
	}
	return &App{Translator: translator, Cache: cache, Gateway: gateway, Logger: l}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, map[string]any{"error": map[string]string{"code": slug, "message": message}})
}
