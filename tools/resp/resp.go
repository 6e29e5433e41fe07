package resp

import (
	"net/http"

	"chatserve/logger"
	"chatserve/tools/errs"

	"github.com/gin-gonic/gin"
)

// Fail writes the CodeError carried by err with its mapped status, or logs
// the cause and answers a generic 500.
func Fail(c *gin.Context, err error) {
	if ce := errs.Parse(err); ce != nil {
		c.JSON(ce.HTTPStatus(), ce)
		return
	}
	logger.Errorf("[http] %s %s: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, errs.ErrInternal)
}
