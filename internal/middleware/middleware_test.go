package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridehail/internal/auth"
	"ridehail/internal/domain"
	"ridehail/internal/redis"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeResolver map[string]*domain.User

func (f fakeResolver) ResolveIdentity(ctx context.Context, token string) (*domain.User, error) {
	user, ok := f[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return user, nil
}

var (
	rider  = &domain.User{ID: "rider-1", Name: "Asha", Role: domain.RoleUser}
	driver = &domain.User{ID: "driver-1", Name: "Ravi", Role: domain.RoleDriver}
)

// renderErrors stands in for the handler package's error renderer.
func renderErrors(c *gin.Context) {
	c.Next()
	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}

	var roleErr *auth.RoleError
	switch err := c.Errors.Last().Err; {
	case errors.As(err, &roleErr):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, errBoom):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	}
}

var errBoom = errors.New("boom")

func serve(router *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := serve(router, http.MethodGet, "/", map[string]string{requestIDHeader: "req-42"})
	assert.Equal(t, "req-42", w.Header().Get(requestIDHeader))
	assert.Equal(t, "req-42", w.Body.String())

	w = serve(router, http.MethodGet, "/", nil)
	assert.Len(t, w.Header().Get(requestIDHeader), 36)
	assert.Equal(t, w.Header().Get(requestIDHeader), w.Body.String())
}

func TestRequestLogger_LevelFollowsStatus(t *testing.T) {
	logger, hook := test.NewNullLogger()

	router := gin.New()
	router.Use(RequestID(), RequestLogger(logger))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	router.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	serve(router, http.MethodGet, "/ok?x=1", nil)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, "/ok?x=1", hook.LastEntry().Data["path"])
	assert.Equal(t, "anonymous", hook.LastEntry().Data["user_id"])

	serve(router, http.MethodGet, "/bad", nil)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	serve(router, http.MethodGet, "/fail", nil)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestAuthenticate(t *testing.T) {
	router := gin.New()
	router.Use(renderErrors)
	router.GET("/me", Authenticate(fakeResolver{"good": rider}), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c).ID+"/"+c.GetString(userIDKey))
	})

	testCases := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer good", http.StatusOK, "rider-1/rider-1"},
		{"no header", "", http.StatusUnauthorized, auth.ErrMissingToken.Error()},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, auth.ErrMissingToken.Error()},
		{"empty bearer", "Bearer   ", http.StatusUnauthorized, auth.ErrMissingToken.Error()},
		{"unknown token", "Bearer bad", http.StatusUnauthorized, auth.ErrInvalidToken.Error()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(router, http.MethodGet, "/me", map[string]string{"Authorization": tc.header})
			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantBody)
		})
	}
}

func TestAuthorize(t *testing.T) {
	resolver := fakeResolver{"rider": rider, "driver": driver}

	router := gin.New()
	router.Use(renderErrors)
	router.POST("/cabs", Authenticate(resolver), Authorize(domain.RoleDriver), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	router.POST("/unguarded", Authorize(domain.RoleDriver), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	w := serve(router, http.MethodPost, "/cabs", map[string]string{"Authorization": "Bearer driver"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = serve(router, http.MethodPost, "/cabs", map[string]string{"Authorization": "Bearer rider"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "User role user is not authorized to access this route")

	w = serve(router, http.MethodPost, "/unguarded", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func newIdempotencyRouter(t *testing.T) (*gin.Engine, *redis.IdempotencyStore, *int) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := redis.NewIdempotencyStore(client, time.Hour)
	logger, _ := test.NewNullLogger()
	calls := 0

	router := gin.New()
	router.Use(renderErrors)
	router.POST("/orders",
		Authenticate(fakeResolver{"rider": rider, "driver": driver}),
		Idempotency(store, logger),
		func(c *gin.Context) {
			calls++
			if c.Query("fail") != "" {
				_ = c.Error(errBoom)
				return
			}
			c.JSON(http.StatusCreated, gin.H{"call": calls})
		},
	)
	return router, store, &calls
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	router, _, calls := newIdempotencyRouter(t)
	headers := map[string]string{"Authorization": "Bearer rider", idempotencyHeader: "key-1"}

	first := serve(router, http.MethodPost, "/orders", headers)
	require.Equal(t, http.StatusCreated, first.Code)

	second := serve(router, http.MethodPost, "/orders", headers)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, *calls)

	// Keys are scoped per user.
	other := serve(router, http.MethodPost, "/orders", map[string]string{"Authorization": "Bearer driver", idempotencyHeader: "key-1"})
	assert.Equal(t, http.StatusCreated, other.Code)
	assert.Empty(t, other.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 2, *calls)
}

func TestIdempotency_WithoutKeyAlwaysRuns(t *testing.T) {
	router, _, calls := newIdempotencyRouter(t)
	headers := map[string]string{"Authorization": "Bearer rider"}

	serve(router, http.MethodPost, "/orders", headers)
	serve(router, http.MethodPost, "/orders", headers)

	assert.Equal(t, 2, *calls)
}

func TestIdempotency_FailuresAreNotStored(t *testing.T) {
	router, _, calls := newIdempotencyRouter(t)
	headers := map[string]string{"Authorization": "Bearer rider", idempotencyHeader: "key-2"}

	w := serve(router, http.MethodPost, "/orders?fail=1", headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, http.MethodPost, "/orders?fail=1", headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, w.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 2, *calls)
}

func TestIdempotency_InFlightKeyConflicts(t *testing.T) {
	router, store, calls := newIdempotencyRouter(t)

	acquired, err := store.AcquireLock(context.Background(), "rider-1:POST:/orders:key-3")
	require.NoError(t, err)
	require.True(t, acquired)

	w := serve(router, http.MethodPost, "/orders", map[string]string{"Authorization": "Bearer rider", idempotencyHeader: "key-3"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already in progress")
	assert.Zero(t, *calls)
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"https://app.example.com"}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, http.MethodGet, "/", map[string]string{"Origin": "https://app.example.com"})
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(router, http.MethodGet, "/", map[string]string{"Origin": "https://evil.example.com"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	open := gin.New()
	open.Use(CORS(nil))
	open.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	w = serve(open, http.MethodGet, "/", map[string]string{"Origin": "https://any.example.com"})
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
