// Package grpc implements the gRPC transport for enlisten.
//
// This transport exposes the enlisten.v1.Compiler service (Compile, Plan)
// and the standard gRPC health service. Messages use a JSON codec, so
// clients call with grpc.CallContentSubtype("json"). It is the preferred
// transport for service-to-service calls from other backends.
package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/enlisten/internal/message"
	"github.com/nadzzz/enlisten/internal/transport"
)

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port     int
	dialOpts []grpc.DialOption
	server   *grpc.Server
	health   *health.Server
}

// New creates a new gRPC transport on the given port. dialOpts are added to
// the connections Send opens to targets.
func New(port int, dialOpts ...grpc.DialOption) *Transport {
	return &Transport{port: port, dialOpts: dialOpts}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return t.Serve(ctx, lis, handler)
}

// Serve runs the gRPC server on lis until ctx is cancelled.
func (t *Transport) Serve(ctx context.Context, lis net.Listener, handler transport.Handler) error {
	t.server = grpc.NewServer()
	RegisterCompilerServer(t.server, &compilerService{handler: handler})

	t.health = health.NewServer()
	healthpb.RegisterHealthServer(t.server, t.health)
	t.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	t.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	slog.Info("grpc transport listening", "addr", lis.Addr().String())

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.health.Shutdown()
		t.server.GracefulStop()
	}()

	return t.server.Serve(lis)
}

// compilerService adapts the dispatcher handler to CompilerServer.
type compilerService struct {
	handler transport.Handler
}

func (s *compilerService) Compile(ctx context.Context, req *message.CompileRequest) (*message.CompileResult, error) {
	req.PlanOnly = false
	return s.handle(ctx, req)
}

func (s *compilerService) Plan(ctx context.Context, req *message.CompileRequest) (*message.CompileResult, error) {
	req.PlanOnly = true
	return s.handle(ctx, req)
}

func (s *compilerService) handle(ctx context.Context, req *message.CompileRequest) (*message.CompileResult, error) {
	req.Timestamp = time.Now()
	result, err := s.handler(ctx, req)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "compile: %v", err)
	}
	if result.Error != "" {
		return nil, status.Error(statusCode(result.ErrorKind), result.Error)
	}
	return result, nil
}

// statusCode maps a result error kind to a gRPC status code.
func statusCode(kind string) codes.Code {
	switch kind {
	case "configuration", "empty_script":
		return codes.InvalidArgument
	case "synthesis":
		return codes.Unavailable
	case "cancelled":
		return codes.Canceled
	default:
		return codes.Internal
	}
}

// Send delivers a payload to a gRPC target's ArtifactSink service.
func (t *Transport) Send(ctx context.Context, target message.Target, payload []byte) error {
	opts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, t.dialOpts...)
	conn, err := grpc.NewClient(target.Endpoint, opts...)
	if err != nil {
		return fmt.Errorf("grpc send: %w", err)
	}
	defer conn.Close()

	var ack DeliverAck
	if err := conn.Invoke(ctx, deliverMethod, json.RawMessage(payload), &ack, grpc.CallContentSubtype(codecName)); err != nil {
		return fmt.Errorf("grpc send: %w", err)
	}
	if !ack.Accepted {
		return fmt.Errorf("grpc send: %s rejected the result", target.Endpoint)
	}

	slog.Debug("grpc send success", "target", target.Endpoint, "bytes", len(payload))
	return nil
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.health != nil {
		t.health.Shutdown()
	}
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}
