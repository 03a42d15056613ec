// Package credentials persists third-party API tokens so deployments can
// rotate them without a restart. Environment variables still win when set.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"prodtrans/internal/infra"
	"prodtrans/internal/sqlinline"
)

const (
	ProviderIntento = "intento"
)

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// EnsureSchema creates the provider token table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.sql.Exec(ctx, sqlinline.QCreateProviderTokensTable)
	return err
}

func (s *Store) IntentoAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderIntento)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectProviderToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetIntentoAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("intento api key is required")
	}
	return s.upsert(ctx, ProviderIntento, key, nil)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertProviderToken, provider, token, raw)
	return err
}
