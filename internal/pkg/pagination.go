package pkg

import (
	"context"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/pagination"
	"gorm.io/gorm"

	"github.com/simp-lee/allobricolage/internal/domain"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
	defaultSort     = "id:desc"
)

// reservedParams lists query parameter names used for pagination/sorting, not for filtering.
var reservedParams = map[string]bool{
	"page":      true,
	"page_size": true,
	"sort":      true,
}

// validFieldName matches only alphanumeric characters and underscores.
var validFieldName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ParsePageRequest extracts pagination, sorting, and filtering parameters from query params.
func ParsePageRequest(c *gin.Context) domain.PageRequest {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	if page < 1 {
		page = defaultPage
	}

	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	sort := c.DefaultQuery("sort", defaultSort)

	filter := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if reservedParams[key] {
			continue
		}
		if len(values) > 0 && values[0] != "" {
			filter[key] = values[0]
		}
	}

	return domain.PageRequest{
		Page:     page,
		PageSize: pageSize,
		Sort:     sort,
		Filter:   filter,
	}
}

// Paginate returns a GORM scope that applies LIMIT and OFFSET based on the page request.
func Paginate(req domain.PageRequest) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		offset := (req.Page - 1) * req.PageSize
		return db.Offset(offset).Limit(req.PageSize)
	}
}

// Sort returns a GORM scope that applies ORDER BY based on the page request.
// Only field names present in the allowed list are accepted; others are silently ignored.
// Field names are validated against a strict pattern to prevent SQL injection.
func Sort(req domain.PageRequest, allowed []string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		order, ok := sortClause(req, allowed)
		if !ok {
			return db
		}
		return db.Order(order)
	}
}

// sortClause turns "field:dir" into an ORDER BY clause when the field is allowed.
func sortClause(req domain.PageRequest, allowed []string) (string, bool) {
	parts := strings.SplitN(req.Sort, ":", 2)
	if len(parts) != 2 {
		return "", false
	}

	field := strings.TrimSpace(parts[0])
	direction := strings.TrimSpace(strings.ToLower(parts[1]))

	if direction != "asc" && direction != "desc" {
		return "", false
	}
	if !validFieldName.MatchString(field) || !isAllowed(field, allowed) {
		return "", false
	}
	return field + " " + direction, true
}

// Filter returns a GORM scope that applies WHERE conditions based on the page request filters.
// Only filter keys present in the allowed list are applied; others are silently ignored.
// Keys ending with "__like" produce a LIKE '%value%' condition; others use exact match.
func Filter(req domain.PageRequest, allowed []string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for key, value := range req.Filter {
			// Check for __like suffix.
			if strings.HasSuffix(key, "__like") {
				field := strings.TrimSuffix(key, "__like")
				if !validFieldName.MatchString(field) {
					continue
				}
				if !isAllowed(field, allowed) {
					continue
				}
				db = db.Where(field+" LIKE ?", "%"+value+"%")
			} else {
				if !validFieldName.MatchString(key) {
					continue
				}
				if !isAllowed(key, allowed) {
					continue
				}
				db = db.Where(key+" = ?", value)
			}
		}
		return db
	}
}

// FindPage counts the rows matched by query and loads the requested page,
// ordered by the request sort when it is allowed and by fallback otherwise.
// query must carry a Model. Associations named in preloads are loaded for
// the page only, never for the count. A page past the end is clamped to the
// last one.
func FindPage[T any](ctx context.Context, query *gorm.DB, req domain.PageRequest, allowedSort []string, fallback string, preloads ...string) (*pagination.Pagination[T], error) {
	query = query.Session(&gorm.Session{})

	ordered := query
	if order, ok := sortClause(req, allowedSort); ok {
		ordered = ordered.Order(order)
	} else if fallback != "" {
		ordered = ordered.Order(fallback)
	}
	for _, p := range preloads {
		ordered = ordered.Preload(p)
	}

	paginator := pagination.NewPaginator(
		pagination.WithItemsPerPage[T](pageSize(req)),
		pagination.WithItemTotalCallback[T](func(ctx context.Context) (int64, error) {
			var total int64
			err := query.WithContext(ctx).Count(&total).Error
			return total, err
		}),
		pagination.WithSliceCallback(func(ctx context.Context, offset, limit int) ([]T, error) {
			var items []T
			err := ordered.WithContext(ctx).Offset(offset).Limit(limit).Find(&items).Error
			return items, err
		}),
	)
	return paginator.Paginate(ctx, max(req.Page, defaultPage))
}

// MapPage converts the items of page with fn and keeps its navigation data.
func MapPage[T, U any](page *pagination.Pagination[T], fn func(T) U) *pagination.Pagination[U] {
	items := make([]U, len(page.Items))
	for i, item := range page.Items {
		items[i] = fn(item)
	}
	return &pagination.Pagination[U]{
		Items:            items,
		Pages:            page.Pages,
		TotalPages:       page.TotalPages,
		CurrentPage:      page.CurrentPage,
		FirstPage:        page.FirstPage,
		LastPage:         page.LastPage,
		PreviousPage:     page.PreviousPage,
		NextPage:         page.NextPage,
		ItemsPerPage:     page.ItemsPerPage,
		TotalItems:       page.TotalItems,
		FirstPageInRange: page.FirstPageInRange,
		LastPageInRange:  page.LastPageInRange,
	}
}

func pageSize(req domain.PageRequest) int {
	if req.PageSize < 1 {
		return defaultPageSize
	}
	return min(req.PageSize, maxPageSize)
}

// isAllowed checks if a field name is in the allowed list.
func isAllowed(field string, allowed []string) bool {
	return slices.Contains(allowed, field)
}
