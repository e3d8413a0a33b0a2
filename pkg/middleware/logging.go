package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	RequestIdKey = "RequestId"
	LogKey       = "log"
)

func RequestId() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Request.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(RequestIdKey, requestID)
		c.Writer.Header().Set("X-Request-Id", requestID)
		c.Next()
	}
}

// RequestLogger stores a request scoped entry under LogKey and logs one line
// per request once it has been served.
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestLog := log.WithFields(logrus.Fields{
			"request.id": c.GetString(RequestIdKey),
		})
		c.Set(LogKey, requestLog)

		c.Next()

		requestLog.WithFields(logrus.Fields{
			"latency":   time.Since(start),
			"ip":        c.ClientIP(),
			"method":    c.Request.Method,
			"status":    c.Writer.Status(),
			"error":     c.Errors.ByType(gin.ErrorTypePrivate).String(),
			"body_size": c.Writer.Size(),
			"path":      path,
		}).Info("request served")
	}
}

// Log returns the request scoped entry, or one on the standard logger when
// RequestLogger did not run.
func Log(c *gin.Context) *logrus.Entry {
	if v, ok := c.Get(LogKey); ok {
		if entry, ok := v.(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
