package helper_util

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxPageSize = 100

// GetPaginationParams reads limit/offset query parameters. The limit is
// capped at maxPageSize so a single listing cannot pull an unbounded
// result set.
func GetPaginationParams(c *gin.Context) (limit int, offset int, err error) {
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		return 0, 0, err
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		return 0, 0, err
	}
	if limit <= 0 || offset < 0 {
		return 0, 0, fmt.Errorf("pagination parameters out of range: limit=%d offset=%d", limit, offset)
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit, offset, nil
}
