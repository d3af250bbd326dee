package admin

import (
	"strconv"

	"github.com/rifa-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler serves the back-office API.
type Handler struct {
	*provider.Container
}

// New creates the admin handler.
func New(container *provider.Container) *Handler {
	return &Handler{Container: container}
}

func parseIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
