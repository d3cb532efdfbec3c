package video

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type responseStub struct {
	status int
	header http.Header
	body   []byte
}

func (s responseStub) toResponse() *http.Response {
	header := s.header
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: s.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(string(s.body))),
	}
}

// captureTransport stubs provider responses by request path and records the
// calls it served, so tests can assert both payload shape and call counts.
type captureTransport struct {
	responses map[string]responseStub
	calls     int
	lastBody  []byte
	lastQuery url.Values
}

func newCaptureTransport() *captureTransport {
	return &captureTransport{responses: map[string]responseStub{}}
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls++
	c.lastQuery = req.URL.Query()
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		c.lastBody = body
	}
	if stub, ok := c.responses[req.URL.Path]; ok {
		return stub.toResponse(), nil
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader("not found")),
	}, nil
}

func (c *captureTransport) setJSONResponse(path string, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[path] = responseStub{
		status: http.StatusOK,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   body,
	}
}

func (c *captureTransport) setErrorResponse(path string, status int, body string) {
	c.responses[path] = responseStub{
		status: status,
		body:   []byte(body),
	}
}

func (c *captureTransport) decodeLastBody(v any) error {
	return json.Unmarshal(c.lastBody, v)
}
