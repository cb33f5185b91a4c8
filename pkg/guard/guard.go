// Package guard provides the structural and authorization guards of the
// Gatehouse framework. Structural guards (method, path, path template)
// produce Unmatched on a mismatch so the router can try the next pipeline;
// authorization guards produce Denied, which stops the search with their
// refusal response.
package guard

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/gatehouse-http/gatehouse/pkg/gcontext"
	"github.com/gatehouse-http/gatehouse/pkg/pipeline"
)

// Method passes only when the request method equals m; otherwise the
// pipeline falls through.
func Method(m string) pipeline.Guard {
	return func(next pipeline.Handler) pipeline.Handler {
		return func(r *http.Request) (pipeline.Outcome, error) {
			if r.Method != m {
				return pipeline.Unmatched(), nil
			}
			return next(r)
		}
	}
}

// Path passes only when the request path equals p exactly.
func Path(p string) pipeline.Guard {
	return func(next pipeline.Handler) pipeline.Handler {
		return func(r *http.Request) (pipeline.Outcome, error) {
			if r.URL.Path != p {
				return pipeline.Unmatched(), nil
			}
			return next(r)
		}
	}
}

type segmentKind uint8

const (
	segmentLiteral segmentKind = iota
	segmentString
	segmentInt
)

type segment struct {
	kind  segmentKind
	value string // literal text, or the parameter name
}

// PathTemplate matches the request path against a typed template and, on a
// match, stores the extracted values as path parameters in the request
// context. Template segments are literals, "{name}" for a string segment,
// or "{name:int}" for a segment that must parse as a base-10 integer. A
// shape or type mismatch falls through.
//
// The template is parsed at construction time; an invalid template panics,
// since route tables are built once at startup from static configuration.
func PathTemplate(template string) pipeline.Guard {
	segments := parseTemplate(template)

	return func(next pipeline.Handler) pipeline.Handler {
		return func(r *http.Request) (pipeline.Outcome, error) {
			parts := splitPath(r.URL.Path)
			if len(parts) != len(segments) {
				return pipeline.Unmatched(), nil
			}

			var params httprouter.Params
			for i, seg := range segments {
				switch seg.kind {
				case segmentLiteral:
					if parts[i] != seg.value {
						return pipeline.Unmatched(), nil
					}
				case segmentInt:
					if _, err := strconv.ParseInt(parts[i], 10, 64); err != nil {
						return pipeline.Unmatched(), nil
					}
					params = append(params, httprouter.Param{Key: seg.value, Value: parts[i]})
				case segmentString:
					if parts[i] == "" {
						return pipeline.Unmatched(), nil
					}
					params = append(params, httprouter.Param{Key: seg.value, Value: parts[i]})
				}
			}

			if params != nil {
				r = r.WithContext(gcontext.WithPathParams(r.Context(), params))
			}
			return next(r)
		}
	}
}

// IntParam returns the named path parameter parsed as an integer. The guard
// already validated the format, so a missing or malformed value reports an
// error only for misconfigured pipelines.
func IntParam(r *http.Request, name string) (int64, error) {
	raw := gcontext.Param(r, name)
	if raw == "" {
		return 0, fmt.Errorf("path parameter %q not found", name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("path parameter %q is not an integer: %w", name, err)
	}
	return v, nil
}

func parseTemplate(template string) []segment {
	parts := splitPath(template)
	segments := make([]segment, 0, len(parts))
	for _, part := range parts {
		if !strings.HasPrefix(part, "{") || !strings.HasSuffix(part, "}") {
			segments = append(segments, segment{kind: segmentLiteral, value: part})
			continue
		}
		inner := part[1 : len(part)-1]
		name, typ, hasType := strings.Cut(inner, ":")
		if name == "" {
			panic(fmt.Sprintf("guard: path template %q has an unnamed parameter", template))
		}
		if !hasType {
			segments = append(segments, segment{kind: segmentString, value: name})
			continue
		}
		switch typ {
		case "int":
			segments = append(segments, segment{kind: segmentInt, value: name})
		case "string":
			segments = append(segments, segment{kind: segmentString, value: name})
		default:
			panic(fmt.Sprintf("guard: path template %q has unsupported type %q", template, typ))
		}
	}
	return segments
}

// splitPath splits a path on "/" with the leading slash removed, so "/"
// becomes a single empty segment and "/a/b" becomes ["a", "b"].
func splitPath(p string) []string {
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}

// Route is a convenience constructor for the common method+path pipeline
// shape: Route("GET", "/ping", handler).
func Route(method, path string, h pipeline.Handler) pipeline.Handler {
	return pipeline.Chain(Method(method), Path(path))(h)
}

// RouteTemplate is Route for typed path templates.
func RouteTemplate(method, template string, h pipeline.Handler) pipeline.Handler {
	return pipeline.Chain(Method(method), PathTemplate(template))(h)
}
