package http

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"dairy-service/internal/domain"
	"dairy-service/internal/services"
)

func idParam(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid id %q", services.ErrValidation, c.Param("id"))
	}
	return id, nil
}

// dateQuery reads ?date=YYYY-MM-DD and falls back to today.
func dateQuery(c *gin.Context) (domain.Day, error) {
	raw := c.Query("date")
	if raw == "" {
		return domain.Today(), nil
	}
	d, err := domain.ParseDay(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", services.ErrValidation, err)
	}
	return d, nil
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
