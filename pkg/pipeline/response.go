package pipeline

import (
	"encoding/json"
	"net/http"
)

// Response is the terminal output of a pipeline: a status code, headers,
// and a body. Responses are plain values; the router writes them to the
// wire after the route table has produced a verdict.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Text creates a plain-text response with the given status code and body.
func Text(status int, body string) *Response {
	return &Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:       []byte(body),
	}
}

// HTML creates a text/html response with the given status code and body.
func HTML(status int, body []byte) *Response {
	return &Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       body,
	}
}

// JSON creates an application/json response by marshaling v.
func JSON(status int, v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       body,
	}, nil
}

// WithHeader sets a header on the response and returns it for chaining.
func (resp *Response) WithHeader(key, value string) *Response {
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	resp.Header.Set(key, value)
	return resp
}

// WithCookie adds a Set-Cookie header for c and returns the response for
// chaining.
func (resp *Response) WithCookie(c *http.Cookie) *Response {
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	resp.Header.Add("Set-Cookie", c.String())
	return resp
}

// Write writes the response to an http.ResponseWriter. Headers are copied
// first, then the status code, then the body.
func (resp *Response) Write(w http.ResponseWriter) error {
	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err := w.Write(resp.Body)
	return err
}
