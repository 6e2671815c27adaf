package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/capitalize-ai/event-tracker/internal/model"
	"github.com/capitalize-ai/event-tracker/pkg/logger"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, scopes ...string) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "operator-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Scopes: scopes,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newAuthRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(Auth(testSecret))
	r.Get("/read", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(GetUserID(r.Context())))
	})
	r.With(RequireScope(ScopeAdmin)).Post("/admin", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	return r
}

func TestAuth(t *testing.T) {
	router := newAuthRouter()

	tests := []struct {
		name   string
		method string
		path   string
		header string
		want   int
	}{
		{"missing header", http.MethodGet, "/read", "", http.StatusUnauthorized},
		{"wrong scheme", http.MethodGet, "/read", "Basic abc", http.StatusUnauthorized},
		{"bad signature", http.MethodGet, "/read", "Bearer " + signToken(t, "other"), http.StatusUnauthorized},
		{"valid token", http.MethodGet, "/read", "Bearer " + signToken(t, testSecret), http.StatusOK},
		{"admin without scope", http.MethodPost, "/admin", "Bearer " + signToken(t, testSecret, "read"), http.StatusForbidden},
		{"admin with scope", http.MethodPost, "/admin", "Bearer " + signToken(t, testSecret, ScopeAdmin), http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestLoggingSetsCorrelationID(t *testing.T) {
	var seen string
	h := Logging(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Correlation-ID", "corr-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "corr-1", seen)
	require.Equal(t, "corr-1", rec.Header().Get("X-Correlation-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestScopeListAcceptsStringOrArray(t *testing.T) {
	var c Claims
	require.NoError(t, json.Unmarshal([]byte(`{"sub":"a","scope":"read admin"}`), &c))
	require.Equal(t, ScopeList{"read", "admin"}, c.Scopes)

	c = Claims{}
	require.NoError(t, json.Unmarshal([]byte(`{"sub":"a","scope":["admin"]}`), &c))
	require.Equal(t, ScopeList{"admin"}, c.Scopes)

	out, err := json.Marshal(Claims{Scopes: ScopeList{"read", "admin"}})
	require.NoError(t, err)
	require.JSONEq(t, `{"scope":"read admin"}`, string(out))
}

func TestLoggingReportsAuthenticatedUser(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := &logger.Logger{Logger: zap.New(core)}

	r := chi.NewRouter()
	r.Use(Logging(log))
	r.Use(Auth(testSecret))
	r.Get("/messages", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/messages", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret))
	r.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/messages", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, "operator-1", entries[0].ContextMap()["user_id"])
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, "", entries[1].ContextMap()["user_id"])
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestParseTimeWindow(t *testing.T) {
	from, to, err := ParseTimeWindow(url.Values{
		"fromDate": {"2024-03-05T00:00:00Z"},
		"toDate":   {"2024-03-06T00:00:00+01:00"},
	})
	require.NoError(t, err)
	require.True(t, to.After(from))

	_, _, err = ParseTimeWindow(url.Values{"fromDate": {"2024-03-05T00:00:00Z"}})
	require.EqualError(t, err, "toDate is required")

	_, _, err = ParseTimeWindow(url.Values{"fromDate": {"yesterday"}, "toDate": {"2024-03-06T00:00:00Z"}})
	require.Error(t, err)

	_, _, err = ParseTimeWindow(url.Values{"fromDate": {"2024-03-06T00:00:00Z"}, "toDate": {"2024-03-05T00:00:00Z"}})
	require.Error(t, err)
}

func TestParsePageable(t *testing.T) {
	p, err := ParsePageable(url.Values{})
	require.NoError(t, err)
	require.Equal(t, model.Pageable{Page: 1, PageSize: model.DefaultPageSize, Order: model.OrderDesc}, p)

	p, err = ParsePageable(url.Values{"page": {"3"}, "pageSize": {"25"}, "order": {"ASC"}})
	require.NoError(t, err)
	require.Equal(t, model.Pageable{Page: 3, PageSize: 25, Order: model.OrderAsc}, p)

	for _, q := range []url.Values{
		{"page": {"0"}},
		{"page": {"x"}},
		{"page": {"922337203685477582"}},
		{"page": {strconv.Itoa(model.MaxPage + 1)}},
		{"pageSize": {"101"}},
		{"order": {"sideways"}},
	} {
		_, err := ParsePageable(q)
		require.Error(t, err, q.Encode())
	}
}

func TestParseStatuses(t *testing.T) {
	got, err := ParseStatuses(url.Values{"statuses": {"error, processing_completed", "INFORMATION"}})
	require.NoError(t, err)
	require.Equal(t, []model.EventStatus{model.StatusError, model.StatusProcessingCompleted, model.StatusInformation}, got)

	none, err := ParseStatuses(url.Values{})
	require.NoError(t, err)
	require.Empty(t, none)

	_, err = ParseStatuses(url.Values{"statuses": {"DONE"}})
	require.Error(t, err)
}

func TestValidateIdentifier(t *testing.T) {
	require.NoError(t, ValidateIdentifier("requestId", "7d1f4c2e-9a0b"))
	require.Error(t, ValidateIdentifier("requestId", "  "))
	require.Error(t, ValidateIdentifier("requestId", string(make([]byte, 300))))
	require.Error(t, ValidatePattern("cpaId", "\xff"))
}
