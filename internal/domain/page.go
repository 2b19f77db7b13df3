package domain

// Page is one fetched slice of a list endpoint. It is replaced wholesale on
// every fetch, never patched in place.
type Page[T any] struct {
	CurrentPage     int  `json:"currentPage"`
	TotalPages      int  `json:"totalPages"`
	TotalCount      int  `json:"totalCount"`
	PageSize        int  `json:"pageSize"`
	HasPreviousPage bool `json:"hasPreviousPage"`
	HasNextPage     bool `json:"hasNextPage"`
	Data            []T  `json:"data"`
}
