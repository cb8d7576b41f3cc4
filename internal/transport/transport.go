// Package transport defines the interface for pluggable request transports.
//
// Each transport (gRPC, HTTP, MQTT) implements this interface and is handed
// the dispatcher's handler. The dispatcher doesn't care how requests
// arrive; it only works with the Transport contract.
package transport

import (
	"context"

	"github.com/nadzzz/enlisten/internal/message"
)

// Handler processes an incoming compile request and returns a result.
// The dispatcher provides this handler to each transport.
type Handler func(ctx context.Context, req *message.CompileRequest) (*message.CompileResult, error)

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http", "mqtt").
	Name() string

	// Listen starts accepting requests and dispatches them to the handler.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, handler Handler) error

	// Send delivers a payload to a target address using this transport's protocol.
	Send(ctx context.Context, target message.Target, payload []byte) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
