package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func TestMetricsMiddlewarePassesThrough(t *testing.T) {
	t.Setenv("ENABLE_BUSINESS_METRICS", "true")

	r := mux.NewRouter()
	r.Use(MetricsMiddleware)
	r.HandleFunc("/api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("ok"))
	}).Methods("GET")

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{name: "matched route", path: "/api/items/abc", expectedStatus: http.StatusTeapot},
		{name: "unmatched route", path: "/nope", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestResponseWriterKeepsFirstStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rr, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusCreated, rw.statusCode)
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestEndpointLabelUsesRouteTemplate(t *testing.T) {
	var got string
	r := mux.NewRouter()
	r.HandleFunc("/api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		got = endpointLabel(r)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/items/xyz", nil))
	assert.Equal(t, "/api/items/{id}", got)
}
