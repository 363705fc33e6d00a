package technician

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/simp-lee/pagination"

	"github.com/simp-lee/allobricolage/internal/cache"
	"github.com/simp-lee/allobricolage/internal/domain"
)

// ProfileCache holds technician listings and profile pages. Listings are
// keyed by their normalized query; any profile change drops them all.
type ProfileCache struct {
	lists   *cache.Typed[pagination.Pagination[domain.PublicTechnician]]
	details *cache.Typed[TechnicianDetail]
}

// NewProfileCache creates a ProfileCache over store. A nil store disables
// caching.
func NewProfileCache(store cache.Store) *ProfileCache {
	return &ProfileCache{
		lists:   cache.NewTyped[pagination.Pagination[domain.PublicTechnician]](store, "technicians:list:"),
		details: cache.NewTyped[TechnicianDetail](store, "technicians:id:"),
	}
}

// Invalidate implements domain.TechnicianCache.
func (c *ProfileCache) Invalidate(ctx context.Context, userID uint) {
	c.lists.Purge(ctx)
	c.details.Delete(ctx, detailKey(userID))
}

func detailKey(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}

// listKey renders filter and paging in a fixed order so equivalent queries
// share an entry.
func listKey(f domain.TechnicianFilter, req domain.PageRequest) string {
	var b strings.Builder
	if f.CategoryID != nil {
		fmt.Fprintf(&b, "cat=%d;", *f.CategoryID)
	}
	if city := strings.ToLower(strings.TrimSpace(f.City)); city != "" {
		fmt.Fprintf(&b, "city=%s;", city)
	}
	if f.IsAvailable != nil {
		fmt.Fprintf(&b, "avail=%t;", *f.IsAvailable)
	}
	if f.IsVerified != nil {
		fmt.Fprintf(&b, "verified=%t;", *f.IsVerified)
	}
	if f.MinRating != nil {
		fmt.Fprintf(&b, "min=%g;", *f.MinRating)
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		fmt.Fprintf(&b, "q=%s;", q)
	}
	fmt.Fprintf(&b, "p=%d;s=%d;o=%s", req.Page, req.PageSize, strings.ToLower(req.Sort))
	return b.String()
}
