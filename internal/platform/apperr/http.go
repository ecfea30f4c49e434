package apperr

import (
	"errors"

	"github.com/gin-gonic/gin"
)

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func Body(code Code, msg string) any {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

// AbortWith writes the JSON error body mapped from err.
func AbortWith(c *gin.Context, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Code: CodeInternal, Message: err.Error()}
	}
	c.JSON(ToHTTPStatus(err), Body(e.Code, e.Message))
}
