package event

import (
	"context"
	"fmt"
	"regexp"

	"talkback-be/internal/pkg/logger"
)

// Result is the terminal value a pipeline handler returns to its caller.
type Result map[string]interface{}

// HandlerFunc processes one dispatched event. Named capture groups from the
// matched pattern are merged into the payload before invocation.
type HandlerFunc func(ctx context.Context, payload Payload) (Result, error)

type route struct {
	pattern *regexp.Regexp
	handler HandlerFunc
}

// Router resolves an inbound event name to exactly one handler. Routes are
// registered once at startup; the table is static afterwards. Matching is
// first-match-wins in registration order.
type Router struct {
	routes []route
	logger logger.ILogger
}

func NewRouter(log logger.ILogger) *Router {
	return &Router{logger: log}
}

// Register compiles the pattern and binds it to the handler. A nil handler
// or an invalid pattern is a programming error, not a runtime condition, so
// registration panics rather than returning an error.
func (r *Router) Register(pattern string, handler HandlerFunc) {
	if handler == nil {
		panic(fmt.Sprintf("event: nil handler registered for pattern %q", pattern))
	}
	compiled := regexp.MustCompile(pattern)
	r.routes = append(r.routes, route{pattern: compiled, handler: handler})
	r.logger.Debug("EventRouter", "Registered event route", map[string]interface{}{
		"pattern": pattern,
	})
}

// Dispatch scans routes in registration order and invokes the first handler
// whose pattern matches the event name. Unrecognized event names are a
// silent no-op: inbound names are client-controlled and must never break the
// receive loop. A handler panic is recovered here and surfaced as an error;
// the dispatcher is part of the catch-log-continue boundary around handlers.
func (r *Router) Dispatch(ctx context.Context, eventName string, payload Payload) (result Result, err error) {
	for _, rt := range r.routes {
		match := rt.pattern.FindStringSubmatch(eventName)
		if match == nil {
			continue
		}

		captures := make(map[string]string)
		for i, name := range rt.pattern.SubexpNames() {
			if i == 0 || name == "" || i >= len(match) {
				continue
			}
			captures[name] = match[i]
		}

		defer func() {
			if rec := recover(); rec != nil {
				result = nil
				err = fmt.Errorf("event handler panic for %q: %v", eventName, rec)
			}
		}()
		return rt.handler(ctx, payload.Merge(captures))
	}

	r.logger.Debug("EventRouter", "No route registered for event", map[string]interface{}{
		"event": eventName,
	})
	return nil, nil
}
