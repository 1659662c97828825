package api_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/formrelay/internal/api"
	"github.com/shaharia-lab/formrelay/internal/contact"
	"github.com/shaharia-lab/formrelay/internal/logger"
	"github.com/shaharia-lab/formrelay/internal/service"
	svcmocks "github.com/shaharia-lab/formrelay/internal/service/mocks"
)

// testHarness bundles the mocks and router used by every test.
type testHarness struct {
	relaySvc *svcmocks.MockRelayService
	router   chi.Router
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	relaySvc := new(svcmocks.MockRelayService)
	srv := api.New(relaySvc, logger.Discard())

	r := chi.NewRouter()
	srv.Mount(r)

	return &testHarness{relaySvc: relaySvc, router: r}
}

func (h *testHarness) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
	Fields []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"fields"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRoot(t *testing.T) {
	h := newHarness(t)
	w := h.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"formrelay backend is running"}`, w.Body.String())
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	w := h.do(httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "version")
	assert.Contains(t, body, "commit")
}

func TestContact_Success(t *testing.T) {
	for _, path := range []string{"/contact", "/send-contact-email"} {
		t.Run(path, func(t *testing.T) {
			h := newHarness(t)
			want := contact.ContactRequest{Name: "Jo", Email: "jo@example.com", Message: "Hello there"}
			h.relaySvc.On("Submit", mock.Anything, want).Return(service.Result{SubmissionID: "abc"}, nil)

			body := `{"name":"Jo","email":"jo@example.com","message":"Hello there"}`
			w := h.do(httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			h.relaySvc.AssertExpectations(t)
		})
	}
}

func TestContact_HoneypotReportsSuccess(t *testing.T) {
	h := newHarness(t)
	h.relaySvc.On("Submit", mock.Anything, mock.MatchedBy(func(r contact.ContactRequest) bool {
		return r.Website == "http://spam.example"
	})).Return(service.Result{Suppressed: true}, nil)

	body := `{"name":"x","email":"x@example.com","message":"x","website":"http://spam.example"}`
	w := h.do(httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestContact_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "name=Jo"},
		{"array", `[]`},
		{"wrong type", `{"name":42}`},
		{"empty", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			w := h.do(httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(tc.body)))

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Equal(t, "error", decodeError(t, w).Status)
			h.relaySvc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
		})
	}
}

func TestContact_BodyTooLarge(t *testing.T) {
	h := newHarness(t)
	body := fmt.Sprintf(`{"name":"Jo","email":"jo@example.com","message":%q}`, strings.Repeat("a", 70<<10))
	w := h.do(httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	h.relaySvc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestContact_ValidationError(t *testing.T) {
	h := newHarness(t)
	verr := &service.ValidationError{Fields: []contact.FieldError{
		{Field: "message", Rule: "max", Param: "8000", Message: "message must not exceed 8000 characters"},
	}}
	h.relaySvc.On("Submit", mock.Anything, mock.Anything).Return(service.Result{}, verr)

	body := fmt.Sprintf(`{"name":"Jo","email":"jo@example.com","message":%q}`, strings.Repeat("a", 8001))
	w := h.do(httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(body)))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	got := decodeError(t, w)
	assert.Equal(t, "validation failed", got.Detail)
	require.Len(t, got.Fields, 1)
	assert.Equal(t, "message", got.Fields[0].Field)
	assert.Equal(t, "message must not exceed 8000 characters", got.Fields[0].Message)
}

func TestContact_DownstreamErrors(t *testing.T) {
	secretText := "dial tcp 10.0.0.4:443: connection refused"
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"auth error", &service.AuthError{Err: errors.New(secretText)}, http.StatusInternalServerError},
		{"secret fetch error", &service.SecretFetchError{Name: "mail-to", Err: errors.New(secretText)}, http.StatusInternalServerError},
		{"delivery error", &service.DeliveryError{Provider: "graph", Err: errors.New(secretText)}, http.StatusBadGateway},
		{"unclassified error", errors.New(secretText), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.relaySvc.On("Submit", mock.Anything, mock.Anything).Return(service.Result{}, tc.err)

			body := `{"name":"Jo","email":"jo@example.com","message":"Hello there"}`
			w := h.do(httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(body)))

			assert.Equal(t, tc.wantStatus, w.Code)
			got := decodeError(t, w)
			assert.Equal(t, "error", got.Status)
			assert.NotEmpty(t, got.Detail)
			assert.NotContains(t, w.Body.String(), "10.0.0.4", "internal error text must not leak")
		})
	}
}

func TestContact_MethodNotAllowed(t *testing.T) {
	h := newHarness(t)
	w := h.do(httptest.NewRequest(http.MethodGet, "/contact", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
