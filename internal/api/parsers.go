package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageSize = 20
	maxPageSize     = 500
)

// Pagination is the page selection of a list request
type Pagination struct {
	Page     int
	PageSize int
}

// ParsePaginationFiber extracts page and page_size from the query string
func ParsePaginationFiber(c *fiber.Ctx) Pagination {
	p := Pagination{Page: 1, PageSize: defaultPageSize}

	if pageStr := c.Query("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			p.Page = page
		}
	}

	if sizeStr := c.Query("page_size"); sizeStr != "" {
		if size, err := strconv.Atoi(sizeStr); err == nil && size > 0 && size <= maxPageSize {
			p.PageSize = size
		}
	}

	return p
}
