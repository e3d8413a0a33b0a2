package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"playaviva-leads/pkg/models"
)

// Recovery answers a panicking handler with the generic 500 body. message
// is the client facing error text.
func Recovery(message string) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		details := fmt.Sprint(recovered)
		if err, ok := recovered.(error); ok {
			details = err.Error()
		}

		Log(c).WithField("panic", details).Error("handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   message,
			Details: details,
		})
	})
}
