package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/golang-jwt/jwt/v5"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel/metric"
	noop_metric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	noop_trace "go.opentelemetry.io/otel/trace/noop"
)

const testSecret = "test-handler-secret-key"

func noopTelemetry(name string) (metric.Meter, trace.Tracer) {
	return noop_metric.NewMeterProvider().Meter("test-" + name + "-handler-meter"),
		noop_trace.NewTracerProvider().Tracer("test-" + name + "-handler-tracer")
}

// newTestApp returns an app that can hand out CSRF tokens for store.
func newTestApp(store *session.Store) *fiber.App {
	app := fiber.New()
	app.Get("/test/csrf-token", middleware.CSRFTokenHandler(store))
	return app
}

func signToken(t *testing.T, userID uint64, role domain.Role) string {
	claims := &domain.JwtCustomClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// authenticate returns a CSRF token and the cookies that carry both the JWT
// and the session holding that token.
func authenticate(t *testing.T, app *fiber.App, userID uint64, role domain.Role) (string, []*http.Cookie) {
	jwtCookie := &http.Cookie{Name: middleware.AuthCookie, Value: signToken(t, userID, role)}

	csrfReq := httptest.NewRequest(http.MethodGet, "/test/csrf-token", nil)
	csrfReq.AddCookie(jwtCookie)
	csrfResp, err := app.Test(csrfReq)
	require.NoError(t, err)
	defer csrfResp.Body.Close()

	var csrfBody map[string]string
	require.NoError(t, json.NewDecoder(csrfResp.Body).Decode(&csrfBody))
	csrfToken := csrfBody["csrf_token"]
	require.NotEmpty(t, csrfToken)

	cookies := append([]*http.Cookie{jwtCookie}, csrfResp.Cookies()...)
	return csrfToken, cookies
}

func createJSONRequestWithAuth(t *testing.T, csrfToken string, cookies []*http.Cookie, method, url string, body any) *http.Request {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		assert.NoError(t, err, "Failed to marshal request body")
		reader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	if csrfToken != "" {
		req.Header.Set(middleware.CSRFHeader, csrfToken)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

// createMultipartRequestWithAuth builds a form upload; files maps a field
// to the uploaded file name.
func createMultipartRequestWithAuth(
	t *testing.T,
	csrfToken string,
	cookies []*http.Cookie,
	url string,
	fields, files map[string]string,
) *http.Request {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	for key, val := range fields {
		assert.NoError(t, writer.WriteField(key, val))
	}
	for key, name := range files {
		part, err := writer.CreateFormFile(key, name)
		assert.NoError(t, err)
		_, err = io.WriteString(part, "dummy content")
		assert.NoError(t, err)
	}
	assert.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, url, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if csrfToken != "" {
		req.Header.Set(middleware.CSRFHeader, csrfToken)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}
