package testkit

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	httpc "github.com/rituelsdebene/boutique/pkg/http"
)

// Stub is one canned upstream answer. Requests match on method (empty
// matches any) and URL prefix.
type Stub struct {
	Method   string
	MatchURL string
	Status   int
	Body     string
	// Err makes the round trip fail instead of answering.
	Err error
	// Respond, when set, builds the answer from the request.
	Respond func(r *http.Request) (int, string)
}

// MockTransport answers outgoing pkg/http calls from registered stubs.
// Unmatched calls fail the round trip.
type MockTransport struct {
	mu       sync.Mutex
	stubs    []Stub
	calls    map[int]int
	requests []*http.Request
	bodies   []string
}

// InstallTransport swaps the shared outbound client's transport for the
// duration of t.
func InstallTransport(t testing.TB, stubs ...Stub) *MockTransport {
	t.Helper()
	mt := &MockTransport{stubs: stubs, calls: map[int]int{}}
	httpc.DefaultClient.Transport = mt
	t.Cleanup(httpc.ResetTransport)
	return mt
}

func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.requests = append(mt.requests, req)
	mt.bodies = append(mt.bodies, body)

	for i, s := range mt.stubs {
		if s.Method != "" && !strings.EqualFold(s.Method, req.Method) {
			continue
		}
		if !strings.HasPrefix(req.URL.String(), s.MatchURL) {
			continue
		}
		mt.calls[i]++
		if s.Err != nil {
			return nil, s.Err
		}

		status, payload := s.Status, s.Body
		if s.Respond != nil {
			status, payload = s.Respond(req)
		}
		if status == 0 {
			status = http.StatusOK
		}
		return &http.Response{
			StatusCode: status,
			Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(payload)),
			Request:    req,
		}, nil
	}
	return nil, fmt.Errorf("testkit: no stub for %s %s", req.Method, req.URL)
}

// Calls reports how many requests matched the stub with the given URL prefix.
func (mt *MockTransport) Calls(matchURL string) int {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	n := 0
	for i, s := range mt.stubs {
		if s.MatchURL == matchURL {
			n += mt.calls[i]
		}
	}
	return n
}

// Requests returns every intercepted request with its body, in order.
func (mt *MockTransport) Requests() ([]*http.Request, []string) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]*http.Request(nil), mt.requests...), append([]string(nil), mt.bodies...)
}
