package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"vesting-backend/internal/dto"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var wallet = common.HexToAddress("0x000000000000000000000000000000000000a11c")

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*dto.JWTClaims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	claims := &dto.JWTClaims{Address: wallet.Hex()}
	claims.Subject = wallet.Hex()
	return claims, nil
}

type stubAdminValidator struct{ role string }

func (s stubAdminValidator) ValidateToken(token string) (*dto.AdminJWTClaims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &dto.AdminJWTClaims{Username: "admin", Role: s.role}, nil
}

func serve(handler gin.HandlerFunc, remoteAddr, authHeader string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", handler, func(c *gin.Context) {
		addr, _ := UserAddress(c)
		c.String(http.StatusOK, addr.Hex())
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	logger, _ := test.NewNullLogger()
	handler := NewAuthMiddleware(logger, stubValidator{}).RequireAuth()

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, "MISSING_AUTH_HEADER"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "INVALID_AUTH_FORMAT"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "EMPTY_TOKEN"},
		{"invalid token", "Bearer bad", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"valid", "Bearer good", http.StatusOK, wallet.Hex()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(handler, "127.0.0.1:1", tt.header)
			require.Equal(t, tt.status, w.Code)
			require.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestRequireAdminAuth(t *testing.T) {
	logger, _ := test.NewNullLogger()

	w := serve(NewAdminAuthMiddleware(logger, stubAdminValidator{role: "admin"}).RequireAdminAuth(), "127.0.0.1:1", "Bearer good")
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(NewAdminAuthMiddleware(logger, stubAdminValidator{role: "user"}).RequireAdminAuth(), "127.0.0.1:1", "Bearer good")
	require.Equal(t, http.StatusForbidden, w.Code)

	w = serve(NewAdminAuthMiddleware(logger, stubAdminValidator{role: "admin"}).RequireAdminAuth(), "127.0.0.1:1", "Bearer bad")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLocalhostOnly(t *testing.T) {
	logger, _ := test.NewNullLogger()
	handler := NewLocalhostOnly(logger, []string{"10.1.0.0/16", "192.168.1.20", "not-an-ip"}).Restrict()

	tests := []struct {
		remote string
		status int
	}{
		{"127.0.0.1:9000", http.StatusOK},
		{"[::1]:9000", http.StatusOK},
		{"10.1.44.2:9000", http.StatusOK},
		{"192.168.1.20:9000", http.StatusOK},
		{"192.168.1.21:9000", http.StatusForbidden},
		{"203.0.113.7:9000", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			require.Equal(t, tt.status, serve(handler, tt.remote, "").Code)
		})
	}
}
