package response

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// CorrelationHeader is the header every request and response carries.
const CorrelationHeader = "X-Correlation-ID"

type correlationIDKey struct{}

// ContextWithCorrelationID stores the correlation id in context.
func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	if ctx == nil || correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey{}, correlationID)
}

// CorrelationIDFromContext reads the correlation id from context if present.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return v
	}
	return ""
}

// CorrelationIDFromRequest extracts the correlation id from the request.
func CorrelationIDFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if id := CorrelationIDFromContext(r.Context()); id != "" {
		return id
	}
	return strings.TrimSpace(r.Header.Get(CorrelationHeader))
}

// CorrelationMiddleware ensures a correlation id exists, stores it in
// context and echoes it on the response, including error responses.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := strings.TrimSpace(r.Header.Get(CorrelationHeader))
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		r.Header.Set(CorrelationHeader, correlationID)
		w.Header().Set(CorrelationHeader, correlationID)
		r = r.WithContext(ContextWithCorrelationID(r.Context(), correlationID))
		next.ServeHTTP(w, r)
	})
}
