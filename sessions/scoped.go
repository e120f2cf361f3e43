package sessions

import (
	"context"

	"github.com/jrsteele09/medix-console/internal/errors"
	"github.com/rs/zerolog/log"
)

// Scoped returns the TokenStore of one session backed by repo
func Scoped(repo Repo, sessionID string) TokenStore {
	return &scopedStore{repo: repo, sessionID: sessionID}
}

type scopedStore struct {
	repo      Repo
	sessionID string
}

func (s *scopedStore) Save(ctx context.Context, pair Pair) error {
	return s.repo.Save(ctx, s.sessionID, pair)
}

func (s *scopedStore) ReplaceAccess(ctx context.Context, expectedRefresh, access string) error {
	return s.repo.ReplaceAccess(ctx, s.sessionID, expectedRefresh, access)
}

func (s *scopedStore) Clear(ctx context.Context) error {
	return s.repo.Clear(ctx, s.sessionID)
}

func (s *scopedStore) ReadAccess(ctx context.Context) string {
	return s.read(ctx, KeyAccessToken)
}

func (s *scopedStore) ReadRefresh(ctx context.Context) string {
	return s.read(ctx, KeyRefreshToken)
}

// read treats storage failures as a missing credential
func (s *scopedStore) read(ctx context.Context, key string) string {
	value, err := s.repo.Get(ctx, s.sessionID, key)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			log.Err(err).Str("session", s.sessionID).Str("key", key).Msg("Failed to read session store")
		}
		return ""
	}
	return value
}
