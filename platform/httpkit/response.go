package httpkit

import (
	"errors"
	"net/http"

	"salesflow_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the uniform JSON error envelope.
type ErrorBody struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// WriteError maps a domain error to the proper HTTP status. Non-apperr
// errors are treated as internal and their message is not leaked.
func WriteError(c *gin.Context, err error) {
	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		c.JSON(domainErr.HTTPStatus(), ErrorBody{
			Error:   domainErr.Message,
			Details: domainErr.Details,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorBody{Error: "internal error"})
}
