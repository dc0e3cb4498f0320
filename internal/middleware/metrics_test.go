package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type recordedRequest struct {
	method string
	path   string
	status int
}

type recordingObserver struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (o *recordingObserver) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, recordedRequest{method: method, path: path, status: status})
}

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(observer, "/metrics"))
	r.GET("/courses/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/courses/CS101", "/metrics", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, []recordedRequest{
		{method: http.MethodGet, path: "/courses/:id", status: http.StatusOK},
		{method: http.MethodGet, path: unmatchedRoute, status: http.StatusNotFound},
	}, observer.requests)
}
