package middleware

import (
	"context"
	"net/http"

	apperrors "stagebook/pkg/errors"
	"stagebook/pkg/logger"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

const RequestIDHeader = "X-Request-ID"

func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func reject(w http.ResponseWriter, log *logger.Logger, appErr *apperrors.AppError) {
	if writeErr := apperrors.WriteError(w, appErr); writeErr != nil {
		log.Error("failed to write error response", "code", appErr.Code, "error", writeErr)
	}
}
