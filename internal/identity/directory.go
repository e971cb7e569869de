// Package identity resolves participant display data from the external
// identity provider through the lookup gateway.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"

	"stagebook/internal/catalog/gateway"
	"stagebook/pkg/client"
	apperrors "stagebook/pkg/errors"
	"stagebook/pkg/model"
	"stagebook/pkg/sanitizer"
)

const (
	SourceID        = "identity"
	maxParallelRead = 4
)

type Directory struct {
	api     *client.HttpClient
	gateway *gateway.Gateway[model.Profile]
}

// NewDirectory resolves profiles through api. A nil api makes it a static
// directory that echoes ids back as display names.
func NewDirectory(api *client.HttpClient, gw *gateway.Gateway[model.Profile]) *Directory {
	return &Directory{api: api, gateway: gw}
}

type userResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	AvatarURL   string `json:"avatar_url"`
}

// Profiles resolves each id independently. Ids that fail are left out and
// their errors joined, so callers get every profile that did resolve.
func (d *Directory) Profiles(ctx context.Context, ids []string) ([]model.Profile, error) {
	ids = sanitizer.NormalizeIDSet(ids)
	if d.api == nil {
		out := make([]model.Profile, 0, len(ids))
		for _, id := range ids {
			out = append(out, model.Profile{ID: id, DisplayName: id})
		}
		return out, nil
	}

	resolved := make([]*model.Profile, len(ids))
	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	g.SetLimit(maxParallelRead)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			p, err := d.gateway.Lookup(ctx, SourceID, id, func(ctx context.Context) (model.Profile, error) {
				return d.fetch(ctx, id)
			})
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("profile %s: %w", id, err))
				mu.Unlock()
				return nil
			}
			resolved[i] = &p
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.Profile, 0, len(ids))
	for _, p := range resolved {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out, errors.Join(errs...)
}

func (d *Directory) fetch(ctx context.Context, id string) (model.Profile, error) {
	resp, err := d.api.GET(ctx, "/users/"+url.PathEscape(id), nil)
	if err != nil {
		var statusErr *client.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return model.Profile{}, apperrors.NotFoundWithID("User", id)
		}
		return model.Profile{}, err
	}

	var u userResponse
	if err := resp.DecodeJSON(&u); err != nil {
		return model.Profile{}, err
	}

	p := model.Profile{
		ID:          id,
		DisplayName: sanitizer.NormalizeName(u.DisplayName),
		AvatarURL:   sanitizer.NormalizeAssetURL(u.AvatarURL),
	}
	if role := model.Role(u.Role); role.IsValid() {
		p.Role = role
	}
	if p.DisplayName == "" {
		p.DisplayName = id
	}
	return p, nil
}
