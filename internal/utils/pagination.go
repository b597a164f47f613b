// internal/utils/pagination.go
package utils

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
)

type PaginationParams struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// GetPaginationParams reads 1-based page and perPage query parameters with
// sane clamping.
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("perPage", "20"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	return PaginationParams{Page: page, PerPage: perPage}
}

// TotalPages is ceil(total/perPage); zero when the set is empty.
func TotalPages(total int64, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(perPage)))
}

// PageBounds returns the [start, end) slice of page k over a set of the given
// size. A short final page returns the remainder; a page past the end is
// empty (start == end == total).
func PageBounds(total int64, page, perPage int) (int, int) {
	start := (page - 1) * perPage
	if int64(start) > total {
		start = int(total)
	}
	end := start + perPage
	if int64(end) > total {
		end = int(total)
	}
	return start, end
}

func SetPaginationHeaders(c *gin.Context, total int64, params PaginationParams) {
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	c.Header("X-Page", strconv.Itoa(params.Page))
	c.Header("X-Per-Page", strconv.Itoa(params.PerPage))
	c.Header("X-Total-Pages", strconv.Itoa(TotalPages(total, params.PerPage)))
}
