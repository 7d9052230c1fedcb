package handler

import (
	"net/http"
	"sync/atomic"
)

// RequestCounter counts requests served by this process. It is owned by the
// HTTP layer and injected into the handlers that report it; nothing else
// depends on it.
type RequestCounter struct {
	total atomic.Int64
}

// NewRequestCounter creates a counter starting at zero.
func NewRequestCounter() *RequestCounter {
	return &RequestCounter{}
}

// Middleware increments the counter for every request passing through.
func (c *RequestCounter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.total.Add(1)
		next.ServeHTTP(w, r)
	})
}

// Total returns the number of requests counted so far.
func (c *RequestCounter) Total() int64 {
	return c.total.Load()
}
