package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8080", "http://localhost:8080/api/health"},
		{"127.0.0.1:9000", "http://127.0.0.1:9000/api/health"},
		{"http://sync.internal/", "http://sync.internal/api/health"},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, healthURL(tt.addr))
		})
	}
}

func TestRunHealthCheck(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		w.WriteHeader(status)
	}))
	defer srv.Close()

	assert.NoError(t, runHealthCheck(context.Background(), srv.URL))

	status = http.StatusServiceUnavailable
	assert.Error(t, runHealthCheck(context.Background(), srv.URL))
}
