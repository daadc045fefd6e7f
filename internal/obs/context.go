package obs

import "context"

type routePatternKey struct{}

// WithRoutePattern records the matched router pattern so metrics and request
// logs label by template ("/api/v1/products/{slug}") instead of raw paths.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext returns the recorded pattern, or "".
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	pattern, _ := ctx.Value(routePatternKey{}).(string)
	return pattern
}
