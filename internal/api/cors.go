package api

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// corsAllowHeaders are the request headers browser dashboards send:
// credentials, JSON bodies and EventSource reconnects.
var corsAllowHeaders = []string{"Authorization", "Content-Type", "Last-Event-ID"}

// corsPolicy lets browser dashboards on other local origins call the API.
// Preflights are answered with the methods registered for the requested
// path, so the policy always matches the routes.
type corsPolicy struct {
	origin  string
	headers string
	maxAge  string
	routes  []corsRoute
}

type corsRoute struct {
	segments []string
	methods  string
}

func newCORSPolicy(origin string, maxAgeSeconds int) *corsPolicy {
	return &corsPolicy{
		origin:  origin,
		headers: strings.Join(corsAllowHeaders, ", "),
		maxAge:  strconv.Itoa(maxAgeSeconds),
	}
}

// learnRoutes records the methods of every operation in the OpenAPI
// document. Call it after all routes are registered.
func (p *corsPolicy) learnRoutes(openapi *huma.OpenAPI) {
	p.routes = p.routes[:0]
	for path, item := range openapi.Paths {
		var methods []string
		for method, op := range map[string]*huma.Operation{
			http.MethodGet:    item.Get,
			http.MethodPost:   item.Post,
			http.MethodPut:    item.Put,
			http.MethodPatch:  item.Patch,
			http.MethodDelete: item.Delete,
		} {
			if op != nil {
				methods = append(methods, method)
			}
		}
		if len(methods) == 0 {
			continue
		}
		slices.Sort(methods)
		methods = append(methods, http.MethodOptions)
		p.routes = append(p.routes, corsRoute{
			segments: splitPath(path),
			methods:  strings.Join(methods, ", "),
		})
	}
}

// methodsFor returns the allowed methods for a request path, matching
// {param} segments of the registered templates against any value.
func (p *corsPolicy) methodsFor(path string) (string, bool) {
	segments := splitPath(path)
	for _, route := range p.routes {
		if matchSegments(route.segments, segments) {
			return route.methods, true
		}
	}
	return "", false
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

func matchSegments(template, segments []string) bool {
	if len(template) != len(segments) {
		return false
	}
	for i, part := range template {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			if segments[i] == "" {
				return false
			}
			continue
		}
		if part != segments[i] {
			return false
		}
	}
	return true
}

// preflight answers OPTIONS requests on the mux. Huma never routes OPTIONS,
// so its middleware does not see them.
func (p *corsPolicy) preflight(w http.ResponseWriter, r *http.Request) {
	methods, ok := p.methodsFor(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", p.origin)
	h.Set("Access-Control-Allow-Methods", methods)
	h.Set("Access-Control-Allow-Headers", p.headers)
	h.Set("Access-Control-Max-Age", p.maxAge)
	w.WriteHeader(http.StatusNoContent)
}

// middleware marks API responses readable by other origins.
func (p *corsPolicy) middleware(ctx huma.Context, next func(huma.Context)) {
	ctx.SetHeader("Access-Control-Allow-Origin", p.origin)
	next(ctx)
}
