package validators

import (
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/go-chi/chi/v5"
)

// PathParam returns a trimmed, non-empty route parameter no longer than maxLen.
func PathParam(r *http.Request, key string, maxLen int) (string, error) {
	value := strings.TrimSpace(chi.URLParam(r, key))
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, key+" is required").WithDetails(map[string]any{"field": key})
	}
	if maxLen > 0 && len(value) > maxLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, key+" is too long").WithDetails(map[string]any{"field": key, "max": maxLen})
	}
	return value, nil
}
