package listing

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 500
)

var (
	ErrPageOutOfRange  = errors.New("page out of range")
	ErrInvalidPageSize = errors.New("invalid page size")
)

// Filters is the active filter object keyed by backend query parameter name.
type Filters map[string]any

// Clone returns a shallow copy.
func (f Filters) Clone() Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// reservedParams are set by the pager itself and are never taken from filters.
var reservedParams = map[string]struct{}{"pagenumber": {}, "pagesize": {}, "search": {}}

// scrub copies f without the reserved keys.
func scrub(f Filters) Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		if _, ok := reservedParams[strings.ToLower(k)]; ok {
			continue
		}
		out[k] = v
	}
	return out
}

// Pager owns the paging, search and filter state of one list screen.
// Every change to what is listed (search, filters, size) goes back to page 1;
// only navigation keeps the rest of the state.
type Pager struct {
	page       int
	size       int
	totalPages int
	totalCount int
	search     string
	filters    Filters
}

func NewPager(size int) *Pager {
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	return &Pager{page: 1, size: size, totalPages: 1, filters: Filters{}}
}

func (p *Pager) Page() int        { return p.page }
func (p *Pager) PageSize() int    { return p.size }
func (p *Pager) TotalPages() int  { return p.totalPages }
func (p *Pager) TotalCount() int  { return p.totalCount }
func (p *Pager) Search() string   { return p.search }
func (p *Pager) Filters() Filters { return p.filters.Clone() }

func (p *Pager) SetSearch(term string) {
	p.search = strings.TrimSpace(term)
	p.page = 1
}

// SetPage moves to page, which must lie within [1, totalPages].
func (p *Pager) SetPage(page int) error {
	if page < 1 || page > p.totalPages {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrPageOutOfRange, page, p.totalPages)
	}
	p.page = page
	return nil
}

func (p *Pager) SetPageSize(size int) error {
	if size < 1 || size > MaxPageSize {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, size)
	}
	p.size = size
	p.page = 1
	return nil
}

// ApplyFilters replaces the filter object.
func (p *Pager) ApplyFilters(f Filters) {
	p.filters = scrub(f)
	p.page = 1
}

// Observe records the totals of a fetched page and pulls the current page
// back into range. It reports whether the current page had to move.
func (p *Pager) Observe(totalPages, totalCount int) bool {
	if totalPages < 1 {
		totalPages = 1
	}
	if totalCount < 0 {
		totalCount = 0
	}
	p.totalPages = totalPages
	p.totalCount = totalCount
	if p.page > totalPages {
		p.page = totalPages
		return true
	}
	return false
}

// Reset puts the pager in the explicit empty state used after a failed fetch.
// Search, filters and size are kept so the user can retry.
func (p *Pager) Reset() {
	p.page = 1
	p.totalPages = 1
	p.totalCount = 0
}

// Restore reinstates persisted state. The page is trusted until the next
// Observe clamps it.
func (p *Pager) Restore(page, size int, search string, f Filters) {
	if size >= 1 && size <= MaxPageSize {
		p.size = size
	}
	if page < 1 {
		page = 1
	}
	p.page = page
	if p.totalPages < page {
		p.totalPages = page
	}
	p.search = strings.TrimSpace(search)
	p.filters = scrub(f)
}

// Params builds the query for the next fetch.
func (p *Pager) Params() url.Values {
	v := p.Query()
	v.Set("PageNumber", strconv.Itoa(p.page))
	v.Set("PageSize", strconv.Itoa(p.size))
	return v
}

// Query is Params without the paging keys; exports walk every page with it.
func (p *Pager) Query() url.Values {
	v := url.Values{}
	if p.search != "" {
		v.Set("Search", p.search)
	}
	for key, val := range p.filters {
		for _, s := range normalize(val) {
			v.Add(key, s)
		}
	}
	return v
}

// normalize renders a filter value as query strings. Nil, blank strings,
// zero numbers (unset ids) and empty slices render to nothing.
func normalize(val any) []string {
	if val == nil {
		return nil
	}
	rv := reflect.ValueOf(val)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		s := strings.TrimSpace(rv.String())
		if s == "" {
			return nil
		}
		return []string{s}
	case reflect.Bool:
		return []string{strconv.FormatBool(rv.Bool())}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Int() == 0 {
			return nil
		}
		return []string{strconv.FormatInt(rv.Int(), 10)}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() == 0 {
			return nil
		}
		return []string{strconv.FormatUint(rv.Uint(), 10)}
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f == 0 {
			return nil
		}
		return []string{strconv.FormatFloat(f, 'f', -1, 64)}
	case reflect.Slice, reflect.Array:
		var out []string
		for i := 0; i < rv.Len(); i++ {
			out = append(out, normalize(rv.Index(i).Interface())...)
		}
		return out
	case reflect.Map, reflect.Struct, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		// Nested objects have no query-string form.
		return nil
	default:
		s := strings.TrimSpace(fmt.Sprint(rv.Interface()))
		if s == "" {
			return nil
		}
		return []string{s}
	}
}
