package testkit

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Envelope is the JSON body every endpoint answers with.
type Envelope struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

// Scenario is one request against a handler and what it must answer.
type Scenario struct {
	Name   string
	Method string
	URL    string
	// Body is JSON-encoded unless it is a string, which is sent raw.
	Body  interface{}
	Token string

	ExpectedCode int
	// ExpectedMessage is compared when non-empty.
	ExpectedMessage string
	// Check inspects the decoded envelope after the status assertions.
	Check func(t *testing.T, env Envelope)
}

// Do fires one request at h and returns the recorder.
func Do(t testing.TB, h http.Handler, method, url string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// Decode parses rec's body as an envelope.
func Decode(t testing.TB, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return env
}

// Data unmarshals the envelope payload into dest.
func Data(t testing.TB, env Envelope, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dest), "data: %s", string(env.Data))
}

// Run executes scenarios in order as subtests against h. Order matters:
// later scenarios see the state earlier ones left behind.
func Run(t *testing.T, h http.Handler, scenarios ...Scenario) {
	t.Helper()
	for _, s := range scenarios {
		s := s
		t.Run(s.Name, func(t *testing.T) {
			rec := Do(t, h, s.Method, s.URL, s.Body, s.Token)
			if !assert.Equal(t, s.ExpectedCode, rec.Code, "[%s] status; body: %s", s.Name, rec.Body.String()) {
				return
			}
			env := Decode(t, rec)
			if s.ExpectedMessage != "" {
				assert.Equal(t, s.ExpectedMessage, env.Message, "[%s] message", s.Name)
			}
			if s.Check != nil {
				s.Check(t, env)
			}
		})
	}
}
