package utils

import (
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Pagination holds pagination parameters.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// NewPagination normalises page and limit, falling back to defaultLimit.
func NewPagination(page, limit, defaultLimit int) Pagination {
	if limit <= 0 {
		limit = defaultLimit
	}
	if page <= 0 {
		page = 1
	}
	return Pagination{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// ParsePagination reads page and limit query params.
func ParsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	return NewPagination(c.QueryInt("page", 1), c.QueryInt("limit", defaultLimit), defaultLimit)
}

// Pages returns the number of pages needed for total records.
func (p Pagination) Pages(total int) int {
	if total == 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// Query encodes the pagination as page/limit query values.
func (p Pagination) Query() url.Values {
	values := url.Values{}
	values.Set("page", strconv.Itoa(p.Page))
	values.Set("limit", strconv.Itoa(p.Limit))
	return values
}

// Window returns the [start, end) slice bounds for total records.
func (p Pagination) Window(total int) (int, int) {
	start := min(p.Offset, total)
	end := min(start+p.Limit, total)
	return start, end
}
