package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"prodtrans/internal/domain"
	"prodtrans/internal/middleware"
	"prodtrans/internal/translate"
)

type translateRecordRequest struct {
	Record       domain.Record `json:"record"`
	Fields       []string      `json:"fields"`
	TargetLocale string        `json:"targetLocale"`
}

// TranslationsCreate translates one product record. The target locale comes
// from the payload when set, otherwise from the locale detected by the
// middleware. A fingerprint already committed to the cache is served back
// without contacting the provider.
func (a *App) TranslationsCreate(w http.ResponseWriter, r *http.Request) {
	var req translateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if len(req.Record) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "record is required")
		return
	}
	target := req.TargetLocale
	if target == "" {
		target = middleware.LocaleFromContext(r.Context())
	}
	res, err := a.Translator.TranslateRecord(r.Context(), translate.RecordRequest{
		Record: req.Record,
		Fields: req.Fields,
		Target: target,
	})
	if err != nil {
		a.translationError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.CacheHit {
		status = http.StatusOK
	}
	a.json(w, status, map[string]any{
		"cached":      res.CacheHit,
		"fingerprint": res.Fingerprint,
		"record":      res.Record,
	})
}

func (a *App) TranslationsRecent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	entries, err := a.Cache.Recent(r.Context(), limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("failed to load recent translations")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load translations")
		return
	}
	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		items = append(items, entrySummary(e))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// TranslationsByCatalogNumber returns every cached translation of one
// catalog number, newest first, including superseded fingerprints.
func (a *App) TranslationsByCatalogNumber(w http.ResponseWriter, r *http.Request) {
	catalogNumber := chi.URLParam(r, "catalogNumber")
	if catalogNumber == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "catalogNumber is required")
		return
	}
	entries, err := a.Cache.ByCatalogNumber(r.Context(), catalogNumber)
	if err != nil {
		a.Logger.Error().Err(err).Str("catalog_number", catalogNumber).Msg("failed to load translations")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load translations")
		return
	}
	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		item := entrySummary(e)
		item["record"] = e.Translated
		items = append(items, item)
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) TranslationsStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Cache.Stats(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("failed to load translation stats")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"entries":         stats.Entries,
		"catalog_numbers": stats.CatalogNumbers,
		"latest_modified": stats.LatestModified,
	})
}

func entrySummary(e domain.CacheEntry) map[string]any {
	return map[string]any{
		"id":              e.ID,
		"tenant":          e.Tenant,
		"catalog_number":  e.CatalogNumber,
		"code":            e.Code,
		"status":          e.Status,
		"fingerprint":     e.Fingerprint,
		"source_modified": e.SourceModified,
		"created_at":      e.CreatedAt,
	}
}

func (a *App) translationError(w http.ResponseWriter, r *http.Request, err error) {
	a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("translation request failed")
	switch {
	case errors.Is(err, domain.ErrMissingIdentity):
		a.error(w, http.StatusBadRequest, "bad_request", "record identity missing")
	case errors.Is(err, domain.ErrInvalidTarget):
		a.error(w, http.StatusBadRequest, "bad_request", "invalid target locale")
	case errors.Is(err, domain.ErrStoreUnavailable):
		a.error(w, http.StatusServiceUnavailable, "store_unavailable", "translation store unavailable")
	case errors.Is(err, domain.ErrTranslationTimeout):
		a.error(w, http.StatusGatewayTimeout, "translation_timeout", "translation did not finish in time")
	case errors.Is(err, domain.ErrProviderRequest),
		errors.Is(err, domain.ErrProviderResponse),
		errors.Is(err, domain.ErrMalformedResponse):
		a.error(w, http.StatusBadGateway, "provider_error", "translation provider failed")
	default:
		a.error(w, http.StatusInternalServerError, "internal", "translation failed")
	}
}
