package httpmiddleware

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// unmatchedRoute labels requests no router matched.
const unmatchedRoute = "unmatched"

type routeKey struct{}

// route holds the matched route template. The router fills it in deep in the
// handler stack and LogRequests reads it after the handler returns.
type route struct {
	v atomic.Pointer[string]
}

func (r *route) get() string {
	if p := r.v.Load(); p != nil {
		return *p
	}
	return unmatchedRoute
}

func withRoute(ctx context.Context) (context.Context, *route) {
	if rt, ok := ctx.Value(routeKey{}).(*route); ok {
		return ctx, rt
	}
	rt := new(route)
	return context.WithValue(ctx, routeKey{}, rt), rt
}

// SetRoute records the matched route template, such as "/api/item/:id", for
// request logs, span names and otelhttp metric labels.
func SetRoute(ctx context.Context, method, template string) {
	if template == "" {
		return
	}
	if rt, ok := ctx.Value(routeKey{}).(*route); ok {
		rt.v.Store(&template)
	}

	attr := attribute.String("http.route", template)
	if l, ok := otelhttp.LabelerFromContext(ctx); ok {
		l.Add(attr)
	}
	span := trace.SpanFromContext(ctx)
	span.SetName(method + " " + template)
	span.SetAttributes(attr)
}
