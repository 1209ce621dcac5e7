package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"momogate/internal/apperr"
)

func respondSuccess(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "data": data})
}

// respondError writes the error envelope with the status that matches the error kind.
func respondError(c *gin.Context, err error) {
	body := gin.H{"success": false, "error": "Internal server error"}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		body["error"] = appErr.Message
		if len(appErr.Violations) > 0 {
			body["details"] = appErr.Violations
		}
	}
	c.JSON(apperr.HTTPStatus(err), body)
}
