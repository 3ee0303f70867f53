package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberguard/assistant/internal/model"
	"github.com/cyberguard/assistant/pkg/logger"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name: "Alex",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(GetUserID(r.Context()) + "|" + GetName(r.Context())))
}

func TestAuth(t *testing.T) {
	handler := Auth(testSecret)(http.HandlerFunc(echoUser))

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
		wantBody   string
	}{
		{name: "valid bearer", header: "Bearer " + signToken(t, testSecret, "user-1"), wantStatus: http.StatusOK, wantBody: "user-1|Alex"},
		{name: "query token", query: "?access_token=" + signToken(t, testSecret, "user-2"), wantStatus: http.StatusOK, wantBody: "user-2|Alex"},
		{name: "missing", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + signToken(t, "other", "user-1"), wantStatus: http.StatusUnauthorized},
		{name: "no subject", header: "Bearer " + signToken(t, testSecret, ""), wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestUserRateLimit(t *testing.T) {
	limited := UserRateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithUserID(req.Context(), user))
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, do("a"))
	assert.Equal(t, http.StatusNoContent, do("a"))
	assert.Equal(t, http.StatusTooManyRequests, do("a"))
	assert.Equal(t, http.StatusNoContent, do("b"))
}

func TestLogging_CorrelationID(t *testing.T) {
	var seen string
	r := chi.NewRouter()
	r.Use(Logging(logger.Nop()))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/items/1", nil)
	req.Header.Set("X-Correlation-ID", "corr-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "corr-1", seen)
	assert.Equal(t, "corr-1", rec.Header().Get("X-Correlation-ID"))

	req = httptest.NewRequest(http.MethodGet, "/items/2", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestValidateMessage(t *testing.T) {
	assert.NoError(t, ValidateMessage(model.SendMessageRequest{Content: "hello"}))
	assert.NoError(t, ValidateMessage(model.SendMessageRequest{Content: "   "}))
	assert.Error(t, ValidateMessage(model.SendMessageRequest{Content: "\xff"}))
	assert.Error(t, ValidateMessage(model.SendMessageRequest{
		Content:    "see file",
		Attachment: &model.Attachment{Name: ""},
	}))
	assert.NoError(t, ValidateMessage(model.SendMessageRequest{
		Attachment: &model.Attachment{Name: "voice.webm", Size: 2048, Voice: true},
	}))
}

func TestValidateConversationID(t *testing.T) {
	assert.NoError(t, ValidateConversationID("0190a5c4-7c1e-7a3b-9f2d-5e6a7b8c9d0e"))
	assert.Error(t, ValidateConversationID("abc"))
}

func TestValidateTitle(t *testing.T) {
	assert.NoError(t, ValidateTitle("Phishing review"))
	assert.Error(t, ValidateTitle(string(make([]rune, MaxTitleLength+1))))
}
