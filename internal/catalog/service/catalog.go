package service

import (
	"context"
	"strconv"
	"strings"

	catalogclient "stagebook/internal/catalog/client"
	"stagebook/internal/catalog/gateway"
	"stagebook/pkg/config"
	apperrors "stagebook/pkg/errors"
	"stagebook/pkg/model"
	"stagebook/pkg/sanitizer"
)

const (
	MinQueryLength     = 2
	DefaultSearchLimit = 20
	MaxSearchLimit     = 50
)

type CatalogService interface {
	Search(ctx context.Context, query string, limit int) ([]model.Artist, error)
	Get(ctx context.Context, id string) (*model.Artist, error)
}

// catalogService shares one source budget between searches and detail
// lookups; only the caches are separate.
type catalogService struct {
	client   catalogclient.CatalogClient
	searches *gateway.Gateway[[]model.Artist]
	artists  *gateway.Gateway[*model.Artist]
	cfg      *config.Config
}

func NewCatalogService(
	client catalogclient.CatalogClient,
	searches *gateway.Gateway[[]model.Artist],
	artists *gateway.Gateway[*model.Artist],
	cfg *config.Config,
) CatalogService {
	return &catalogService{
		client:   client,
		searches: searches,
		artists:  artists,
		cfg:      cfg,
	}
}

func (s *catalogService) Search(ctx context.Context, query string, limit int) ([]model.Artist, error) {
	key := sanitizer.NormalizeLookupKey(query)
	if len(key) < MinQueryLength {
		return nil, apperrors.InvalidRequest("Query must be at least 2 characters")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	artists, err := s.searches.Lookup(ctx, s.cfg.CatalogSourceID, "search:"+strconv.Itoa(limit)+":"+key,
		func(ctx context.Context) ([]model.Artist, error) {
			return s.client.SearchArtists(ctx, key, limit)
		})
	if err != nil {
		s.cfg.Log.Warn("Catalog search failed", "query", key, "error", err)
		return nil, err
	}
	return artists, nil
}

func (s *catalogService) Get(ctx context.Context, id string) (*model.Artist, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.InvalidRequest("Artist id is required")
	}

	return s.artists.Lookup(ctx, s.cfg.CatalogSourceID, "artist:"+id,
		func(ctx context.Context) (*model.Artist, error) {
			return s.client.GetArtist(ctx, id)
		})
}
