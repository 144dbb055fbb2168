package shared

// DefaultPageSize applies when a list request names no page size
const DefaultPageSize = 20

// Filter is the paging, ordering and free-text search of a list query.
// Filters holds equality conditions keyed by column name.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]interface{}
}

// Normalized returns a copy with page 1, DefaultPageSize and the given
// ordering filled in where the caller left them empty
func (f Filter) Normalized(orderBy, orderDir string) Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.OrderBy == "" {
		f.OrderBy = orderBy
	}
	if f.OrderDir == "" {
		f.OrderDir = orderDir
	}
	if f.Filters == nil {
		f.Filters = make(map[string]interface{})
	}
	return f
}

// Offset returns the row offset for the requested page
func (f Filter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}
