package app

import (
	"net/http"
	"time"

	"github.com/gatehouse-http/gatehouse/pkg/codec"
	"github.com/gatehouse-http/gatehouse/pkg/guard"
	"github.com/gatehouse-http/gatehouse/pkg/pipeline"
	"github.com/gatehouse-http/gatehouse/pkg/session"
)

// routeTable holds the collaborators and fixed state the route handlers
// close over. startedAt is captured once at construction and backs /once,
// so the value never refreshes for the life of the table.
type routeTable struct {
	sessions  *session.Manager
	renderer  Renderer
	maxUpload int64
	startedAt time.Time
	carCodec  *codec.FormCodec[Car, Car]
}

func newRouteTable(sessions *session.Manager, renderer Renderer, maxUpload int64) *routeTable {
	return &routeTable{
		sessions:  sessions,
		renderer:  renderer,
		maxUpload: maxUpload,
		startedAt: time.Now(),
		carCodec:  codec.NewFormCodec[Car, Car](),
	}
}

// routes builds the ordered pipeline list. Order is significant: the first
// pipeline that matches wins, so more specific paths must precede the ones
// they overlap with.
func (t *routeTable) routes() []pipeline.Handler {
	once := t.startedAt.Format(timestampFormat)

	razorData := map[string]string{
		"Title":   "Gatehouse",
		"Message": "A demo application rendered from a server-side template.",
	}
	person := Person{
		Name:       "John Doe",
		Born:       "1990-04-20",
		Occupation: "Software Developer",
	}

	return []pipeline.Handler{
		guard.Route(http.MethodGet, "/", pipeline.Respond(http.StatusOK, "index")),
		guard.Route(http.MethodGet, "/ping", pipeline.Respond(http.StatusOK, "pong")),
		guard.Route(http.MethodGet, "/error", pipeline.Fail(errSomethingWentWrong)),
		guard.Route(http.MethodGet, "/login", pipeline.RespondFunc(t.login)),
		guard.Route(http.MethodGet, "/logout", pipeline.RespondFunc(t.logout)),
		pipeline.Chain(
			guard.Method(http.MethodGet),
			guard.Path("/user"),
			guard.RequireAuth(guard.AccessDenied),
		)(pipeline.RespondFunc(t.userName)),
		pipeline.Chain(
			guard.Method(http.MethodGet),
			guard.PathTemplate("/user/{id:int}"),
			guard.RequireRole("Admin", guard.AccessDenied),
		)(pipeline.RespondFunc(t.userByID)),
		guard.Route(http.MethodGet, "/razor", t.view("razor.html", razorData)),
		guard.Route(http.MethodGet, "/razorHello", t.view("hello.html", map[string]string{"Name": "world"})),
		guard.Route(http.MethodGet, "/fileupload", t.view("fileupload.html", nil)),
		guard.Route(http.MethodGet, "/person", t.view("person.html", person)),
		guard.Route(http.MethodGet, "/once", pipeline.Respond(http.StatusOK, once)),
		guard.Route(http.MethodGet, "/everytime", pipeline.RespondFunc(t.everytime)),
		guard.Route(http.MethodPost, "/small-upload", pipeline.RespondFunc(t.smallUpload)),
		guard.Route(http.MethodPost, "/large-upload", pipeline.RespondFunc(t.largeUpload)),
		guard.Route(http.MethodPost, "/car", pipeline.RespondFunc(t.submitCar)),
	}
}
