package errors

import (
	"encoding/json"
	"net/http"
)

// WriteError renders err as {code, message, details}. Wrapped causes are
// never serialized.
func WriteError(w http.ResponseWriter, err error) error {
	appErr := AsAppError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())
	return json.NewEncoder(w).Encode(appErr.Response())
}
