package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestIssuer(now time.Time) *Issuer {
	iss := NewIssuer("classattend", "test-key", 15*time.Minute, 24*time.Hour)
	iss.now = func() time.Time { return now }
	return iss
}

func TestIssueAndParse(t *testing.T) {
	now := time.Now()
	iss := newTestIssuer(now)
	pair, err := iss.Issue("kiosk-7")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := iss.Parse(pair.AccessToken, KindAccess)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "kiosk-7" || claims.Role != RoleKiosk {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := iss.Parse(pair.RefreshToken, KindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh token accepted as access: %v", err)
	}
	if _, err := iss.Refresh(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access token accepted for refresh: %v", err)
	}
	if _, err := iss.Refresh(pair.RefreshToken); err != nil {
		t.Errorf("Refresh: %v", err)
	}
}

func TestParseRejects(t *testing.T) {
	now := time.Now()
	pair, _ := newTestIssuer(now).Issue("kiosk-7")

	tests := []struct {
		name string
		iss  *Issuer
	}{
		{name: "expired", iss: newTestIssuer(now.Add(time.Hour))},
		{name: "wrong key", iss: NewIssuer("classattend", "other-key", time.Minute, time.Minute)},
		{name: "wrong issuer", iss: NewIssuer("someone-else", "test-key", time.Minute, time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.iss.Parse(pair.AccessToken, KindAccess); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestKioskAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	iss := newTestIssuer(time.Now())
	pair, _ := iss.Issue("kiosk-7")

	r := gin.New()
	r.GET("/whoami", KioskAuth(iss), func(c *gin.Context) {
		id, _ := KioskID(c)
		c.String(http.StatusOK, id)
	})

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{name: "header", target: "/whoami", header: "Bearer " + pair.AccessToken, want: http.StatusOK},
		{name: "query", target: "/whoami?access_token=" + pair.AccessToken, want: http.StatusOK},
		{name: "missing", target: "/whoami", want: http.StatusUnauthorized},
		{name: "refresh token", target: "/whoami", header: "Bearer " + pair.RefreshToken, want: http.StatusUnauthorized},
		{name: "garbage", target: "/whoami", header: "Bearer abc", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusOK && w.Body.String() != "kiosk-7" {
				t.Errorf("body = %q", w.Body.String())
			}
		})
	}
}
