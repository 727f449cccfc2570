package businesses

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quinisports/quinisports/internal/shared"
)

// Slug builds "<name>-<id>" with the name slugified.
func Slug(name string, id int64) string {
	base := shared.Slugify(name)
	if base == "" {
		return strconv.FormatInt(id, 10)
	}
	return base + "-" + strconv.FormatInt(id, 10)
}

// ParseSlugID extracts the business id from a slug: the text after the last
// dash, or the whole slug when it has none.
func ParseSlugID(slug string) (int64, error) {
	raw := slug
	if i := strings.LastIndex(slug, "-"); i >= 0 {
		raw = slug[i+1:]
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("slug %q: %w", slug, shared.ErrNotFound)
	}
	return id, nil
}
