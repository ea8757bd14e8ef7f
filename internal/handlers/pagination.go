package handlers

import (
	"strconv"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// parsePagination reads page and limit query values. Limits above the
// maximum are clamped rather than rejected.
func parsePagination(c *fiber.Ctx) (page, limit int, msg string) {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		return 0, 0, "page must be a positive integer"
	}
	limit, err = strconv.Atoi(c.Query("limit", strconv.Itoa(defaultPageLimit)))
	if err != nil || limit < 1 {
		return 0, 0, "limit must be a positive integer"
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit, ""
}

func buildPaginationMeta(page, limit, total int) models.PaginationMeta {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return models.PaginationMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
