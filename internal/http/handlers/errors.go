package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/services"
)

// Error codes are stable, snake_case and safe for clients to branch on.
// Every error body carries one next to the human-readable message.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeForbidden     = "forbidden"
	ErrCodeNotFound      = "not_found"
	ErrCodeConflict      = "conflict"
	ErrCodeGone          = "gone"
	ErrCodeUnprocessable = "unprocessable_entity"
	ErrCodeRateLimited   = "too_many_requests"
	ErrCodeInternal      = "internal_error"
	ErrCodeUnavailable   = "service_unavailable"

	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Fallbacks for unexpected failures of a given operation.
	ErrCodeCreateFailed = "create_failed"
	ErrCodeUpdateFailed = "update_failed"
	ErrCodeDeleteFailed = "delete_failed"
	ErrCodeListFailed   = "list_failed"
	ErrCodeSearchFailed = "search_failed"
)

// serviceError maps a service sentinel onto a response. An empty message
// means the error text is shown as is.
type serviceError struct {
	target  error
	status  int
	code    string
	message string
}

// First match wins.
var serviceErrors = []serviceError{
	{services.ErrMealNotFound, http.StatusNotFound, ErrCodeNotFound, "meal not found"},
	{services.ErrRecipeNotFound, http.StatusNotFound, ErrCodeNotFound, "recipe not found"},
	{services.ErrRatingNotFound, http.StatusNotFound, ErrCodeNotFound, "rating not found"},
	{services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden, ""},
	{services.ErrInvalidInput, http.StatusUnprocessableEntity, ErrCodeUnprocessable, ""},
	{services.ErrVersionConflict, http.StatusConflict, ErrCodeConflict, ""},
	{services.ErrMealExists, http.StatusConflict, ErrCodeConflict, ""},
	{services.ErrGone, http.StatusGone, ErrCodeGone, ""},
}

// failService answers with the mapping for err, or a 500 carrying fallback.
func failService(c *gin.Context, err error, fallback string) {
	for _, m := range serviceErrors {
		if !errors.Is(err, m.target) {
			continue
		}
		msg := m.message
		if msg == "" {
			msg = err.Error()
		}
		fail(c, m.status, m.code, msg)
		return
	}
	fail(c, http.StatusInternalServerError, fallback, err.Error())
}
