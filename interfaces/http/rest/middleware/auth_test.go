package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lattice/infrastructure/config"
	"lattice/pkg/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret: testSecret,
		JWTIssuer: "lattice",
	}
}

func issueToken(t *testing.T, secret string, ttl time.Duration) string {
	t.Helper()
	generator, err := auth.NewJWTGenerator(auth.JWTGeneratorConfig{
		SigningMethod: "HS256",
		SecretKey:     secret,
		Issuer:        "lattice",
		Audience:      []string{"lattice-api"},
		ExpiryTime:    ttl,
	})
	require.NoError(t, err)

	token, err := generator.GenerateToken("user-9", "user-9@example.test", []string{"authenticated"})
	require.NoError(t, err)
	return token
}

// userCapture records the user context the middleware hands downstream
type userCapture struct {
	user   *auth.UserContext
	called bool
}

func (c *userCapture) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.called = true
		c.user, _ = auth.GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
	return body.Error.Message
}

func TestAuthenticateAcceptsBearerToken(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	capture := &userCapture{}
	mw := Authenticate(testConfig(), auth.NewSlidingWindowLimiter(100, time.Minute), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v2/workspaces", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, testSecret, time.Hour))
	rec := httptest.NewRecorder()

	mw(capture.handler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, capture.called)
	require.NotNil(t, capture.user)
	assert.Equal(t, "user-9", capture.user.UserID)
	assert.Equal(t, "user-9@example.test", capture.user.Email)
	assert.Equal(t, []string{"authenticated"}, capture.user.Roles)
}

func TestAuthenticateReadsCookieToken(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	capture := &userCapture{}
	mw := Authenticate(testConfig(), auth.NewSlidingWindowLimiter(100, time.Minute), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v2/workspaces", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: issueToken(t, testSecret, time.Hour)})
	rec := httptest.NewRecorder()

	mw(capture.handler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, capture.called)
}

func TestAuthenticateRejectsMissingToken(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	capture := &userCapture{}
	mw := Authenticate(testConfig(), auth.NewSlidingWindowLimiter(100, time.Minute), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v2/workspaces", nil)
	rec := httptest.NewRecorder()

	mw(capture.handler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, capture.called)
	assert.Equal(t, "Missing authentication token", errorCode(t, rec))
}

func TestAuthenticateRejectsWrongSignature(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	mw := Authenticate(testConfig(), auth.NewSlidingWindowLimiter(100, time.Minute), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v2/workspaces", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, "other-secret", time.Hour))
	rec := httptest.NewRecorder()

	mw((&userCapture{}).handler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token signature", errorCode(t, rec))
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	mw := Authenticate(testConfig(), auth.NewSlidingWindowLimiter(100, time.Minute), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v2/workspaces", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, testSecret, -time.Minute))
	rec := httptest.NewRecorder()

	mw((&userCapture{}).handler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token has expired", errorCode(t, rec))
}

func TestAuthenticateAppliesIPRateLimit(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")

	// One request per window per key: the second request from the same
	// address is turned away before token validation
	mw := Authenticate(testConfig(), auth.NewSlidingWindowLimiter(1, time.Minute), zap.NewNop())
	handler := mw((&userCapture{}).handler())
	token := issueToken(t, testSecret, time.Hour)

	first := httptest.NewRequest(http.MethodGet, "/api/v2/workspaces", nil)
	first.Header.Set("Authorization", "Bearer "+token)
	firstRec := httptest.NewRecorder()
	handler.ServeHTTP(firstRec, first)
	require.Equal(t, http.StatusOK, firstRec.Code, firstRec.Body.String())

	second := httptest.NewRequest(http.MethodGet, "/api/v2/workspaces", nil)
	second.Header.Set("Authorization", "Bearer "+token)
	secondRec := httptest.NewRecorder()
	handler.ServeHTTP(secondRec, second)
	require.Equal(t, http.StatusTooManyRequests, secondRec.Code)
}

func TestAuthenticateFallsBackToDevelopmentSecret(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	cfg := testConfig()
	cfg.JWTSecret = ""
	capture := &userCapture{}
	mw := Authenticate(cfg, auth.NewSlidingWindowLimiter(100, time.Minute), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v2/workspaces", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, developmentSecret, time.Hour))
	rec := httptest.NewRecorder()

	mw(capture.handler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, capture.called)
}

func TestAuthenticateForLambdaTrustsGatewayHeaders(t *testing.T) {
	capture := &userCapture{}
	mw := AuthenticateForLambda(auth.NewSlidingWindowLimiter(100, time.Minute), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v2/workspaces", nil)
	req.Header.Set("X-API-Gateway-Authorized", "true")
	req.Header.Set("X-User-ID", "user-9")
	req.Header.Set("X-User-Email", "user-9@example.test")
	req.Header.Set("X-User-Roles", "admin,editor")
	rec := httptest.NewRecorder()

	mw(capture.handler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, capture.user)
	assert.Equal(t, "user-9", capture.user.UserID)
	assert.Equal(t, []string{"admin", "editor"}, capture.user.Roles)
}

func TestAuthenticateForLambdaRejectsUnauthorizedRequests(t *testing.T) {
	capture := &userCapture{}
	mw := AuthenticateForLambda(auth.NewSlidingWindowLimiter(100, time.Minute), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v2/workspaces", nil)
	req.Header.Set("X-User-ID", "user-9")
	rec := httptest.NewRecorder()

	mw(capture.handler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, capture.called)
}

func TestAuthenticateForLambdaRequiresUserID(t *testing.T) {
	mw := AuthenticateForLambda(auth.NewSlidingWindowLimiter(100, time.Minute), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v2/workspaces", nil)
	req.Header.Set("X-API-Gateway-Authorized", "true")
	rec := httptest.NewRecorder()

	mw((&userCapture{}).handler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
