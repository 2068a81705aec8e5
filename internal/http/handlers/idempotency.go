package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
)

// HeaderIdempotencyReplayed is set on responses served from a recorded key.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// replay serves the resource recorded for the request's Idempotency-Key, if
// any, and reports whether it did. load fetches the resource by id.
func (h *Handlers) replay(c *gin.Context, load func(ctx context.Context, id string) (any, error)) bool {
	key, present := middleware.GetIdempotencyKey(c)
	if !present || h.idem == nil {
		return false
	}
	ctx := c.Request.Context()
	id, found, err := h.idem.Lookup(ctx, userID(c), middleware.IdempotencyScope(c), key)
	if err != nil || !found {
		return false
	}
	body, err := load(ctx, id)
	if err != nil {
		// The recorded resource is gone; process the request normally.
		return false
	}
	c.Header(HeaderIdempotencyReplayed, "true")
	ok(c, http.StatusOK, body)
	return true
}

// remember records resourceID for the request's Idempotency-Key (best effort).
func (h *Handlers) remember(c *gin.Context, resourceID string, status int) {
	key, present := middleware.GetIdempotencyKey(c)
	if !present || h.idem == nil {
		return
	}
	if err := h.idem.Remember(c.Request.Context(), userID(c), middleware.IdempotencyScope(c), key, resourceID, status); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("record idempotency key")
	}
}
