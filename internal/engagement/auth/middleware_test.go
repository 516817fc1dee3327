package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddleware(t *testing.T) {
	const (
		validSecret   = "test-secret"
		invalidSecret = "wrong-secret"
		userID        = "test-user"
	)

	// Helper to generate test tokens
	generateToken := func(secret string, expiresAt time.Time) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": userID,
			"exp": expiresAt.Unix(),
		})
		tokenString, _ := token.SignedString([]byte(secret))
		return tokenString
	}

	tests := []struct {
		name     string
		path     string
		header   string
		wantCode int
	}{
		{
			name:     "protected path valid token",
			path:     "/v1/engagements",
			header:   "Bearer " + generateToken(validSecret, time.Now().Add(time.Hour)),
			wantCode: http.StatusOK,
		},
		{
			name:     "protected path invalid signature",
			path:     "/v1/engagements",
			header:   "Bearer " + generateToken(invalidSecret, time.Now().Add(time.Hour)),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "protected path expired token",
			path:     "/v1/engagements",
			header:   "Bearer " + generateToken(validSecret, time.Now().Add(-time.Hour)),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "protected path missing header",
			path:     "/v1/members",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "unprotected path no token",
			path:     "/healthz",
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var subject string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject = SubjectFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			HTTPMiddleware(next, validSecret).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK && tt.header != "" {
				assert.Equal(t, userID, subject, "claims are stored in the request context")
			}
		})
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantToken string
		wantErr   string
	}{
		{name: "valid authorization header", header: "Bearer valid-token", wantToken: "valid-token"},
		{name: "missing authorization header", wantErr: "authorization header required"},
		{name: "malformed authorization header", header: "InvalidPrefix valid-token", wantErr: "invalid authorization format: missing Bearer prefix"},
		{name: "empty bearer token", header: "Bearer ", wantErr: "invalid authorization format: empty token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/engagements", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			token, err := extractTokenFromHeader(req)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken("staff-1", "secret")
	require.NoError(t, err)

	claims, err := validateToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims["sub"])
	assert.Equal(t, "auth-service", claims["iss"])

	_, err = validateToken(token, "other")
	assert.Error(t, err)
}

func TestValidateToken_RejectsOtherSigningMethods(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user"})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = validateToken(tokenString, "secret")
	assert.Error(t, err)
}

func TestSubjectFromContext(t *testing.T) {
	assert.Empty(t, SubjectFromContext(context.Background()))
	assert.Equal(t, "staff-2", SubjectFromContext(WithSubject(context.Background(), "staff-2")))
}
