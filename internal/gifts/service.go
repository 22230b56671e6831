package gifts

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/giftgate/giftgate/internal/logging"
)

// Authorizer gates collection loads. auth.Manager satisfies it.
type Authorizer interface {
	IsAuthorized() bool
}

// Service loads and normalizes collections for verified users.
type Service struct {
	source     Source
	normalizer Normalizer
	logger     *slog.Logger
	now        func() time.Time
}

// NewService wires a source and normalizer.
func NewService(source Source, normalizer Normalizer, logger *slog.Logger) *Service {
	return &Service{
		source:     source,
		normalizer: normalizer,
		logger:     logging.Component(logger, "gifts"),
		now:        time.Now,
	}
}

// Load fetches name for an authorized caller. An empty merged result returns
// the (empty) collection together with ErrEmptyResult.
func (s *Service) Load(ctx context.Context, authz Authorizer, name string) (Collection, error) {
	if authz == nil || !authz.IsAuthorized() {
		return Collection{}, ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	slug := NormalizeIdentifier(name)
	if slug == "" {
		return Collection{}, ErrInvalidName
	}

	listing, err := s.source.Fetch(ctx, slug)
	if err != nil {
		s.logger.Warn("collection fetch failed", slog.String("slug", slug), slog.Any("error", err))
		return Collection{}, err
	}

	records := s.normalizer.Normalize(name, listing)
	col := Collection{
		Name:     name,
		Slug:     slug,
		Records:  records,
		Stats:    ComputeAggregates(records),
		LoadedAt: s.now().UTC(),
	}
	s.logger.Info("collection loaded", slog.String("slug", slug), slog.Int("count", len(records)))
	if len(records) == 0 {
		return col, ErrEmptyResult
	}
	return col, nil
}

// IsEmpty reports whether err marks a no-results load.
func IsEmpty(err error) bool {
	return errors.Is(err, ErrEmptyResult)
}
