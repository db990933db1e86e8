package e2etesting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type RequestOptions struct {
	Method  string
	Path    string
	Body    any
	Headers map[string]string
	Cookies []*http.Cookie
}

type Response struct {
	*http.Response
	Body []byte
}

func (r *Response) GetJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

func (r *Response) GetString() string {
	return string(r.Body)
}

// Message returns the "message" field of a JSON body, or "".
func (r *Response) Message() string {
	var body struct {
		Message string `json:"message"`
	}
	_ = r.GetJSON(&body)
	return body.Message
}

func (r *Response) AssertStatus(t *testing.T, expectedStatus int) {
	t.Helper()
	require.Equal(t, expectedStatus, r.StatusCode, "unexpected status code. Response: %s", r.GetString())
}

func (r *Response) AssertMessage(t *testing.T, expected string) {
	t.Helper()
	require.Equal(t, expected, r.Message(), "unexpected message. Response: %s", r.GetString())
}

// Cookie returns the named cookie set by the response, or nil.
func (r *Response) Cookie(name string) *http.Cookie {
	for _, c := range r.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type HTTPClient struct {
	Client  *http.Client
	BaseURL string
	bearer  string
}

// NewHTTPClient returns a client with its own cookie jar, so the refresh
// cookie travels between calls like in a browser.
func NewHTTPClient(baseURL string) *HTTPClient {
	jar, _ := cookiejar.New(nil)
	return &HTTPClient{
		Client:  &http.Client{Timeout: 30 * time.Second, Jar: jar},
		BaseURL: baseURL,
	}
}

// WithBearer returns a copy of c that sends token in the Authorization header.
// The cookie jar is shared.
func (c *HTTPClient) WithBearer(token string) *HTTPClient {
	clone := *c
	clone.bearer = token
	return &clone
}

func (c *HTTPClient) Get(path string) (*Response, error) {
	return c.Request(&RequestOptions{Method: http.MethodGet, Path: path})
}

func (c *HTTPClient) Post(path string, body any) (*Response, error) {
	return c.Request(&RequestOptions{Method: http.MethodPost, Path: path, Body: body})
}

func (c *HTTPClient) Delete(path string) (*Response, error) {
	return c.Request(&RequestOptions{Method: http.MethodDelete, Path: path})
}

func (c *HTTPClient) Request(opts *RequestOptions) (*Response, error) {
	var bodyReader io.Reader
	if opts.Body != nil {
		jsonBody, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(opts.Method, c.BaseURL+opts.Path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}
	for _, cookie := range opts.Cookies {
		req.AddCookie(cookie)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{Response: resp, Body: body}, nil
}
