package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/h2non/gock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momogate/config"
	"momogate/internal/webhook"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "5000", Env: "development", BaseURL: "https://merchant.test"},
		JWT:    config.JWTConfig{Issuer: "momogate"},
		Swahilies: config.SwahiliesConfig{
			APIKey:       "test-key",
			SecretKey:    "test-secret",
			APIURL:       "https://gateway.test/Api",
			Timeout:      5 * time.Second,
			MaxBodyBytes: 1_000_000,
			CountryCode:  "255",
		},
		RateLimit: config.RateLimitConfig{Requests: 100, Window: time.Minute},
	}
}

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	r, err := Setup(testConfig(), nil, zerolog.Nop())
	require.NoError(t, err)
	return r
}

func serve(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSetupRejectsMissingCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.Swahilies.SecretKey = ""
	_, err := Setup(cfg, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestInitiatePaymentEndToEnd(t *testing.T) {
	defer gock.Off()
	gock.New("https://gateway.test").
		Post("/Api").
		MatchHeader("X-Api-Key", "test-key").
		HeaderPresent("X-Signature").
		Reply(200).
		JSON(map[string]interface{}{
			"code":                200,
			"amount":              1000,
			"transaction_details": map[string]string{"reference_id": "R1", "payment_url": "https://pay/R1"},
		})

	w := serve(newEngine(t), http.MethodPost, "/api/payments/mobile-money",
		`{"amount":1000,"phoneNumber":"255754808161","planName":"Standard Boost","orderId":"order_42"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{
		"success": true,
		"message": "Payment initiated successfully",
		"data": {"paymentUrl":"https://pay/R1","reference":"R1","orderId":"order_42","amount":1000,"status":"pending"}
	}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	assert.True(t, gock.IsDone())
}

func TestInitiatePaymentGatewayRejection(t *testing.T) {
	defer gock.Off()
	gock.New("https://gateway.test").
		Post("/Api").
		Reply(400).
		JSON(map[string]string{"msg": "insufficient funds"})

	w := serve(newEngine(t), http.MethodPost, "/api/payments/mobile-money",
		`{"amount":1000,"phoneNumber":"255754808161","planName":"Standard Boost"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"insufficient funds"}`, w.Body.String())
}

func TestInitiatePaymentInvalidInputNeverReachesGateway(t *testing.T) {
	defer gock.Off()
	gock.New("https://gateway.test").Post("/Api").Reply(200)

	w := serve(newEngine(t), http.MethodPost, "/api/payments/mobile-money",
		`{"amount":"abc","phoneNumber":"0754808161","planName":"Gold"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{
		"success": false,
		"error": "Invalid payment data",
		"details": [
			"Plan must be one of: Free Posting, Standard Boost, Premium Boost",
			"Amount must be a positive number",
			"Phone number must be in format 255XXXXXXXXX (12 digits total)"
		]
	}`, w.Body.String())
	assert.False(t, gock.IsDone(), "gateway mock must stay unused")
}

func TestStatusRoutes(t *testing.T) {
	defer gock.Off()
	gock.New("https://gateway.test").
		Post("/Api").
		Reply(200).
		JSON(map[string]interface{}{"code": 404})

	r := newEngine(t)

	w := serve(r, http.MethodGet, "/api/payments/status/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Valid order ID is required"}`, w.Body.String())

	w = serve(r, http.MethodGet, "/api/payments/status/order_42", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Payment status not found"}`, w.Body.String())
}

func TestWebhookRoutes(t *testing.T) {
	r := newEngine(t)
	body := `{"code":200,"transaction_details":{"order_id":"order_42","reference_id":"R1"},"timestamp":1700000000}`

	v, err := webhook.NewBodyHMAC("test-secret")
	require.NoError(t, err)
	sig, err := v.Expected([]byte(body))
	require.NoError(t, err)

	w := serve(r, http.MethodPost, "/api/payments/webhook", body, webhook.HeaderSignature, sig)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Webhook processed")

	w = serve(r, http.MethodPost, "/api/payments/webhook", body, webhook.HeaderSignature, "bad")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Webhook received")

	w = serve(r, http.MethodPost, "/api/webhook", body, webhook.HeaderDigest, "bad")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	d, err := webhook.NewDigest("test-key", "test-secret")
	require.NoError(t, err)
	w = serve(r, http.MethodPost, "/api/webhook", body, webhook.HeaderDigest, d.Expected("1700000000", "192.0.2.1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Webhook processed")
}

func TestForwardedForIsIgnoredWithoutTrustedProxies(t *testing.T) {
	r := newEngine(t)
	body := `{"code":200,"transaction_details":{"order_id":"order_42"},"timestamp":1700000000}`
	d, err := webhook.NewDigest("test-key", "test-secret")
	require.NoError(t, err)

	w := serve(r, http.MethodPost, "/api/webhook", body,
		webhook.HeaderDigest, d.Expected("1700000000", "203.0.113.9"),
		"X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOperationalRoutes(t *testing.T) {
	r := newEngine(t)

	w := serve(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = serve(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	w = serve(r, http.MethodGet, "/api/payments/verify-config", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "test-secret")
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Requests = 1
	r, err := Setup(cfg, nil, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/payments/status/abc", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/api/payments/status/abc", "").Code)
	// webhooks bypass the limiter
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/api/webhook", `{}`).Code)
}
