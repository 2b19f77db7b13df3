package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"cleantech-console/internal/domain"
	"cleantech-console/internal/validation"

	"github.com/go-resty/resty/v2"
)

// allPageSize is the page size used when walking a whole listing.
const allPageSize = 500

// Resource is the CRUD surface every backend resource shares, rooted at
// path (e.g. "device", "question").
type Resource[T domain.Entity] struct {
	c    *Client
	path string
}

func NewResource[T domain.Entity](c *Client, path string) *Resource[T] {
	return &Resource[T]{c: c, path: path}
}

func (r *Resource[T]) Path() string { return r.path }

func (r *Resource[T]) List(ctx context.Context, params url.Values) (domain.Page[T], error) {
	return r.Fetch(ctx, params, false)
}

func (r *Resource[T]) ListDeleted(ctx context.Context, params url.Values) (domain.Page[T], error) {
	return r.Fetch(ctx, params, true)
}

// Fetch lists one page of the active or the soft-deleted rows.
func (r *Resource[T]) Fetch(ctx context.Context, params url.Values, deleted bool) (domain.Page[T], error) {
	p := r.path + "/pagination"
	if deleted {
		p = r.path + "/deleted/pagination"
	}
	return do[domain.Page[T]](ctx, r.c, http.MethodGet, p, func(req *resty.Request) {
		req.SetQueryParamsFromValues(params)
	})
}

// All walks every page matching query and returns the concatenated rows.
func (r *Resource[T]) All(ctx context.Context, query url.Values, deleted bool) ([]T, error) {
	var out []T
	for page := 1; ; page++ {
		params := url.Values{}
		for k, v := range query {
			params[k] = append([]string(nil), v...)
		}
		params.Set("PageNumber", strconv.Itoa(page))
		params.Set("PageSize", strconv.Itoa(allPageSize))

		res, err := r.Fetch(ctx, params, deleted)
		if err != nil {
			return nil, err
		}
		out = append(out, res.Data...)
		if !res.HasNextPage || page >= res.TotalPages || len(res.Data) == 0 {
			return out, nil
		}
	}
}

func (r *Resource[T]) Get(ctx context.Context, id int) (T, error) {
	return do[T](ctx, r.c, http.MethodGet, r.path+"/"+strconv.Itoa(id), nil)
}

// Create validates form and posts it as JSON.
func (r *Resource[T]) Create(ctx context.Context, form any) error {
	if err := validation.Struct(form); err != nil {
		return err
	}
	_, err := do[any](ctx, r.c, http.MethodPost, r.path+"/create", jsonBody(form))
	return err
}

// Update validates form and puts it as JSON.
func (r *Resource[T]) Update(ctx context.Context, form any) error {
	if err := validation.Struct(form); err != nil {
		return err
	}
	_, err := do[any](ctx, r.c, http.MethodPut, r.path+"/edit", jsonBody(form))
	return err
}

func (r *Resource[T]) Delete(ctx context.Context, id int) error {
	_, err := do[any](ctx, r.c, http.MethodDelete, r.path+"/delete/"+strconv.Itoa(id), nil)
	return err
}

type bulkDeleteBody struct {
	IDs []int `json:"ids"`
}

func (r *Resource[T]) BulkDelete(ctx context.Context, ids []int) error {
	_, err := do[any](ctx, r.c, http.MethodDelete, r.path+"/delete", jsonBody(bulkDeleteBody{IDs: ids}))
	return err
}

func (r *Resource[T]) Restore(ctx context.Context, id int) error {
	_, err := do[any](ctx, r.c, http.MethodPut, r.path+"/restore/"+strconv.Itoa(id), nil)
	return err
}

func (r *Resource[T]) ForceDelete(ctx context.Context, id int) error {
	_, err := do[any](ctx, r.c, http.MethodDelete, r.path+"/forcedelete/"+strconv.Itoa(id), nil)
	return err
}
