package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"stagebook/pkg/client"
	apperrors "stagebook/pkg/errors"
	"stagebook/pkg/model"
	"stagebook/pkg/sanitizer"
)

const apiKeyHeader = "X-Api-Key"

type CatalogClient interface {
	SearchArtists(ctx context.Context, query string, limit int) ([]model.Artist, error)
	GetArtist(ctx context.Context, id string) (*model.Artist, error)
}

type catalogClient struct {
	api *client.HttpClient
}

func NewCatalogClient(baseURL, apiKey string, timeout time.Duration) CatalogClient {
	c := client.NewHttpClient(baseURL, timeout)
	if apiKey != "" {
		c.Headers[apiKeyHeader] = apiKey
	}
	return &catalogClient{api: c}
}

type searchResponse struct {
	Artists []model.Artist `json:"artists"`
}

func (c *catalogClient) SearchArtists(ctx context.Context, query string, limit int) ([]model.Artist, error) {
	params := url.Values{"q": {query}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	resp, err := c.api.GET(ctx, "/artists", params)
	if err != nil {
		return nil, err
	}

	var out searchResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, err
	}
	for i := range out.Artists {
		normalizeArtist(&out.Artists[i])
	}
	return out.Artists, nil
}

func (c *catalogClient) GetArtist(ctx context.Context, id string) (*model.Artist, error) {
	resp, err := c.api.GET(ctx, "/artists/"+url.PathEscape(id), nil)
	if err != nil {
		var statusErr *client.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, apperrors.NotFoundWithID("Artist", id)
		}
		return nil, err
	}

	var artist model.Artist
	if err := resp.DecodeJSON(&artist); err != nil {
		return nil, err
	}
	normalizeArtist(&artist)
	return &artist, nil
}

func normalizeArtist(a *model.Artist) {
	a.Name = sanitizer.NormalizeName(a.Name)
	a.ImageURL = sanitizer.NormalizeAssetURL(a.ImageURL)
}
