package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gatehouse-http/gatehouse/pkg/gcontext"
	"github.com/gatehouse-http/gatehouse/pkg/guard"
	"github.com/gatehouse-http/gatehouse/pkg/pipeline"
	"github.com/gatehouse-http/gatehouse/pkg/session"
)

// Car is the record bound from the form fields posted to /car.
type Car struct {
	Name   string    `form:"Name" json:"name"`
	Make   string    `form:"Make" json:"make"`
	Wheels int       `form:"Wheels" json:"wheels"`
	Built  time.Time `form:"Built" json:"built"`
}

// Person is the demonstration data rendered by the /person view.
type Person struct {
	Name       string
	Born       string
	Occupation string
}

// timestampFormat matches the textual form of time values shown by /once
// and /everytime.
const timestampFormat = "2006-01-02 15:04:05.0000000 -07:00"

// errSomethingWentWrong is the demonstration failure raised by /error. Its
// message text is surfaced verbatim in the 500 body.
var errSomethingWentWrong = errors.New("Something went wrong!")

func (t *routeTable) login(r *http.Request) (*pipeline.Response, error) {
	p := session.Principal{
		Name: "John",
		Claims: map[string]string{
			"name":    "John",
			"surname": "Doe",
		},
		Roles: []string{"Admin"},
	}
	cookie, err := t.sessions.Issue(r.Context(), p, r.TLS != nil)
	if err != nil {
		return nil, err
	}
	return pipeline.Text(http.StatusOK, "Successfully logged in").WithCookie(cookie), nil
}

func (t *routeTable) logout(r *http.Request) (*pipeline.Response, error) {
	cookie, err := t.sessions.Clear(r)
	if err != nil {
		return nil, err
	}
	return pipeline.Text(http.StatusOK, "Successfully logged out.").WithCookie(cookie), nil
}

func (t *routeTable) userName(r *http.Request) (*pipeline.Response, error) {
	p, ok := gcontext.GetPrincipalFromRequest(r)
	if !ok {
		return nil, errors.New("no principal in context")
	}
	return pipeline.Text(http.StatusOK, p.Name), nil
}

func (t *routeTable) userByID(r *http.Request) (*pipeline.Response, error) {
	id, err := guard.IntParam(r, "id")
	if err != nil {
		return nil, err
	}
	return pipeline.Text(http.StatusOK, fmt.Sprintf("User ID: %d", id)), nil
}

func (t *routeTable) everytime(r *http.Request) (*pipeline.Response, error) {
	return pipeline.Text(http.StatusOK, time.Now().Format(timestampFormat)), nil
}

// smallUpload parses the whole multipart form into memory and responds with
// the uploaded file names, each preceded by a newline.
func (t *routeTable) smallUpload(r *http.Request) (*pipeline.Response, error) {
	if !isMultipart(r) {
		return pipeline.Text(http.StatusBadRequest, "Bad request"), nil
	}
	if err := r.ParseMultipartForm(t.maxUpload); err != nil {
		return pipeline.Text(http.StatusBadRequest, "Bad request"), nil
	}
	var names []string
	for _, field := range sortedFields(r.MultipartForm) {
		for _, header := range r.MultipartForm.File[field] {
			names = append(names, header.Filename)
		}
	}
	return pipeline.Text(http.StatusOK, joinNames(names)), nil
}

// largeUpload reads the multipart body part by part without buffering it in
// memory, honoring request cancellation mid-stream.
func (t *routeTable) largeUpload(r *http.Request) (*pipeline.Response, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return pipeline.Text(http.StatusBadRequest, "Bad request"), nil
	}
	var names []string
	for {
		if err := r.Context().Err(); err != nil {
			return nil, err
		}
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed reading multipart stream: %w", err)
		}
		if part.FileName() != "" {
			names = append(names, part.FileName())
		}
		if _, err := io.Copy(io.Discard, contextReader{ctx: r.Context(), r: part}); err != nil {
			part.Close()
			return nil, err
		}
		part.Close()
	}
	return pipeline.Text(http.StatusOK, joinNames(names)), nil
}

func (t *routeTable) submitCar(r *http.Request) (*pipeline.Response, error) {
	car, err := t.carCodec.Decode(r)
	if err != nil {
		return pipeline.Text(http.StatusBadRequest, "Bad request"), nil
	}
	resp := &pipeline.Response{StatusCode: http.StatusOK, Header: http.Header{}}
	if err := t.carCodec.Encode(&responseBuffer{resp: resp}, car); err != nil {
		return nil, err
	}
	return resp, nil
}

// responseBuffer adapts a pipeline.Response to http.ResponseWriter so a
// codec can encode directly into a response value.
type responseBuffer struct {
	resp *pipeline.Response
}

func (b *responseBuffer) Header() http.Header { return b.resp.Header }

func (b *responseBuffer) Write(p []byte) (int, error) {
	b.resp.Body = append(b.resp.Body, p...)
	return len(p), nil
}

func (b *responseBuffer) WriteHeader(status int) { b.resp.StatusCode = status }

// view returns a responder that renders the named template with fixed data.
func (t *routeTable) view(name string, data any) pipeline.Handler {
	return pipeline.RespondFunc(func(r *http.Request) (*pipeline.Response, error) {
		body, err := t.renderer.Render(name, data)
		if err != nil {
			return nil, err
		}
		return pipeline.HTML(http.StatusOK, body), nil
	})
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// sortedFields returns the form's file field names in a stable order so the
// response body does not depend on map iteration.
func sortedFields(form *multipart.Form) []string {
	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// joinNames joins file names with a leading newline before each, so a
// response with N files has N newline-prefixed names.
func joinNames(names []string) string {
	return strings.Join(append([]string{""}, names...), "\n")
}

// contextReader aborts an in-progress read when the request context is
// canceled, so a client disconnect stops a large upload mid-stream.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
