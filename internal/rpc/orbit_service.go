// Package rpc exposes the default scene and the prediction client over gRPC.
//
// OrbitService is declared by hand over protobuf well-known types, so the
// messages are google.protobuf.Struct documents shaped like the HTTP API's
// JSON bodies.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "orbitguard.v1.OrbitService"

const (
	OrbitService_Overview_FullMethodName = "/" + ServiceName + "/Overview"
	OrbitService_Snapshot_FullMethodName = "/" + ServiceName + "/Snapshot"
	OrbitService_Predict_FullMethodName  = "/" + ServiceName + "/Predict"
)

// OrbitServiceServer is the server API for OrbitService.
type OrbitServiceServer interface {
	Overview(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Snapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Predict(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterOrbitServiceServer registers srv on s.
func RegisterOrbitServiceServer(s grpc.ServiceRegistrar, srv OrbitServiceServer) {
	s.RegisterService(&OrbitService_ServiceDesc, srv)
}

func _OrbitService_Overview_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrbitServiceServer).Overview(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: OrbitService_Overview_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrbitServiceServer).Overview(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _OrbitService_Snapshot_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrbitServiceServer).Snapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: OrbitService_Snapshot_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrbitServiceServer).Snapshot(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _OrbitService_Predict_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrbitServiceServer).Predict(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: OrbitService_Predict_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrbitServiceServer).Predict(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// OrbitService_ServiceDesc is the grpc.ServiceDesc for OrbitService.
var OrbitService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrbitServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Overview", Handler: _OrbitService_Overview_Handler},
		{MethodName: "Snapshot", Handler: _OrbitService_Snapshot_Handler},
		{MethodName: "Predict", Handler: _OrbitService_Predict_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orbitguard/v1/orbit_service.proto",
}

// OrbitServiceClient is the client API for OrbitService.
type OrbitServiceClient interface {
	Overview(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Snapshot(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Predict(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type orbitServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewOrbitServiceClient wraps cc.
func NewOrbitServiceClient(cc grpc.ClientConnInterface) OrbitServiceClient {
	return &orbitServiceClient{cc}
}

func (c *orbitServiceClient) Overview(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, OrbitService_Overview_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orbitServiceClient) Snapshot(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, OrbitService_Snapshot_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orbitServiceClient) Predict(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, OrbitService_Predict_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
