package grpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"

	"github.com/nadzzz/enlisten/internal/message"
)

const (
	// ServiceName is the fully-qualified compiler service name.
	ServiceName = "enlisten.v1.Compiler"

	// SinkServiceName receives forwarded results.
	SinkServiceName = "enlisten.v1.ArtifactSink"

	compileMethod = "/" + ServiceName + "/Compile"
	planMethod    = "/" + ServiceName + "/Plan"
	deliverMethod = "/" + SinkServiceName + "/Deliver"
)

// CompilerServer is the server API for the compiler service.
type CompilerServer interface {
	Compile(context.Context, *message.CompileRequest) (*message.CompileResult, error)
	Plan(context.Context, *message.CompileRequest) (*message.CompileResult, error)
}

// RegisterCompilerServer registers srv on s.
func RegisterCompilerServer(s grpc.ServiceRegistrar, srv CompilerServer) {
	s.RegisterService(&compilerServiceDesc, srv)
}

var compilerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CompilerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Compile", Handler: compileHandler},
		{MethodName: "Plan", Handler: planHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "enlisten/v1/compiler",
}

func compileHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(message.CompileRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CompilerServer).Compile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: compileMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CompilerServer).Compile(ctx, req.(*message.CompileRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func planHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(message.CompileRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CompilerServer).Plan(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: planMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CompilerServer).Plan(ctx, req.(*message.CompileRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ArtifactSinkServer receives results forwarded by Send.
type ArtifactSinkServer interface {
	Deliver(context.Context, *json.RawMessage) (*DeliverAck, error)
}

// DeliverAck acknowledges a delivered result.
type DeliverAck struct {
	Accepted bool `json:"accepted"`
}

// RegisterArtifactSinkServer registers srv on s.
func RegisterArtifactSinkServer(s grpc.ServiceRegistrar, srv ArtifactSinkServer) {
	s.RegisterService(&sinkServiceDesc, srv)
}

var sinkServiceDesc = grpc.ServiceDesc{
	ServiceName: SinkServiceName,
	HandlerType: (*ArtifactSinkServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Deliver", Handler: deliverHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "enlisten/v1/sink",
}

func deliverHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(json.RawMessage)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ArtifactSinkServer).Deliver(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: deliverMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ArtifactSinkServer).Deliver(ctx, req.(*json.RawMessage))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls a remote compiler service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Compile compiles req on the remote service.
func (c *Client) Compile(ctx context.Context, req *message.CompileRequest, opts ...grpc.CallOption) (*message.CompileResult, error) {
	out := new(message.CompileResult)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, compileMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Plan previews req on the remote service.
func (c *Client) Plan(ctx context.Context, req *message.CompileRequest, opts ...grpc.CallOption) (*message.CompileResult, error) {
	out := new(message.CompileResult)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, planMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
