package public

import "github.com/rifa-next/internal/provider"

// Handler serves the storefront and provider callback endpoints.
type Handler struct {
	*provider.Container
}

// New creates the public handler.
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
