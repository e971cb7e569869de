package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"stagebook/pkg/auth"
	"stagebook/pkg/config"
	apperrors "stagebook/pkg/errors"
	"stagebook/pkg/model"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidRequest("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, apperrors.InvalidRequest("invalid offset parameter: " + s)
		}
		offset = v
	}

	return config.NormalizePaginationLimit(limit), config.NormalizeOffset(offset), nil
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.InvalidRequest("Invalid request body")
	}
	return nil
}

// Principal returns the caller set by the auth middleware.
func Principal(r *http.Request) (*model.Principal, error) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		return nil, apperrors.Unauthorized("authentication required")
	}
	return p, nil
}
