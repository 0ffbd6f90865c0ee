package shared

import (
	"net/http"
	"strconv"
)

// Pagination contains offset/limit parameters for listings.
type Pagination struct {
	Skip  int
	Limit int
}

// PaginationFromRequest reads skip/limit query parameters with sane bounds.
func PaginationFromRequest(r *http.Request) Pagination {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	if skip < 0 {
		skip = 0
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return Pagination{Skip: skip, Limit: limit}
}
