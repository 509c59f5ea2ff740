package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

var blockedAttributeKeys = map[attribute.Key]struct{}{
	"access_token":  {},
	"api_key":       {},
	"client_secret": {},
	"secret_key":    {},
	"authorization": {},
}

// ExtractContext reads the upstream trace context from carrier.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// SafeAttributes drops attributes that could carry credentials.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, blocked := blockedAttributeKeys[attribute.Key(strings.ToLower(string(attr.Key)))]; blocked {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError returns an error safe to attach to a span. Bearer tokens that
// leak into transport errors are redacted.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	idx := strings.Index(strings.ToLower(msg), "bearer ")
	if idx < 0 {
		return err
	}
	return errors.New(msg[:idx] + "Bearer [redacted]")
}
