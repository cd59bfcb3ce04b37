package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	svc := NewService(nil, NewTokenManager("test-secret", time.Hour))
	valid, _, err := svc.tokens.Issue(User{ID: "u1", Email: "curator@example.org"})
	require.NoError(t, err)
	revoked, _, err := svc.tokens.Issue(User{ID: "u1"})
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(t.Context(), revoked))

	var gotUser *User
	handler := Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{name: "missing header", authHeader: "", expectedStatus: http.StatusUnauthorized},
		{name: "not a bearer header", authHeader: "Basic abc", expectedStatus: http.StatusUnauthorized},
		{name: "bearer without token", authHeader: "Bearer ", expectedStatus: http.StatusUnauthorized},
		{name: "invalid token", authHeader: "Bearer nope", expectedStatus: http.StatusUnauthorized},
		{name: "revoked token", authHeader: "Bearer " + revoked, expectedStatus: http.StatusUnauthorized},
		{name: "valid token", authHeader: "Bearer " + valid, expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = nil
			req := httptest.NewRequest("GET", "/api/admin/items", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus == http.StatusOK {
				require.NotNil(t, gotUser)
				assert.Equal(t, "u1", gotUser.ID)
			} else {
				assert.Contains(t, rr.Body.String(), `"error"`)
			}
		})
	}
}
