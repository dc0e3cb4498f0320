package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey  = "response_meta"
	requestStartKey  = "request_started_at"
	processingTimeMS = "processing_time_ms"
)

// WithResponseMeta initialises response metadata storage on the request context.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetMeta records one metadata value for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	ensureMeta(c)[key] = value
}

// ResponseMeta merges extra into the metadata collected so far and stamps the elapsed processing time.
// It returns nil when there is nothing to report.
func ResponseMeta(c *gin.Context, extra map[string]interface{}) map[string]interface{} {
	meta := make(map[string]interface{})
	if c != nil {
		if stored, ok := c.Get(responseMetaKey); ok {
			if typed, ok := stored.(map[string]interface{}); ok {
				for k, v := range typed {
					meta[k] = v
				}
			}
		}
		if started, ok := c.Get(requestStartKey); ok {
			if t, ok := started.(time.Time); ok {
				meta[processingTimeMS] = time.Since(t).Milliseconds()
			}
		}
	}
	for k, v := range extra {
		meta[k] = v
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	newMeta := make(map[string]interface{})
	c.Set(responseMetaKey, newMeta)
	return newMeta
}
