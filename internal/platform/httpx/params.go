package httpx

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quinisports/quinisports/internal/shared"
)

// PathID parses a positive integer URL parameter. Malformed ids are
// reported as missing records.
func PathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s %q: %w", name, raw, shared.ErrNotFound)
	}
	return id, nil
}
