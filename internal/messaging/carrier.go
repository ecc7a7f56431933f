package messaging

import (
	"context"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func entryCarrier(e OutboxEntry) propagation.MapCarrier {
	carrier := propagation.MapCarrier{}
	for key, value := range map[string]string{
		"traceparent": e.TraceParent,
		"tracestate":  e.TraceState,
		"baggage":     e.Baggage,
	} {
		if v := strings.TrimSpace(value); v != "" {
			carrier.Set(key, v)
		}
	}
	return carrier
}

func carrierToHeaders(carrier propagation.MapCarrier) []kafka.Header {
	headers := make([]kafka.Header, 0, len(carrier))
	for key, value := range carrier {
		if strings.TrimSpace(value) == "" {
			continue
		}
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}
	return headers
}

// ContextFromHeaders restores the producer's trace context on the consumer side.
func ContextFromHeaders(parent context.Context, headers []kafka.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, header := range headers {
		key := strings.ToLower(strings.TrimSpace(header.Key))
		if key == "" {
			continue
		}
		carrier.Set(key, string(header.Value))
	}
	return otel.GetTextMapPropagator().Extract(parent, carrier)
}
