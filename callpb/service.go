// Package callpb declares the CallService gRPC contract. Messages on the
// Connect stream are google.protobuf.Struct envelopes of the form
// {"event": string, "data": any}, mirroring the JSON frames of the WebSocket transport.
package callpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName                        = "callwatch.v1.CallService"
	CallService_Connect_FullMethodName = "/" + ServiceName + "/Connect"
)

// Metadata keys carrying the caller's identity on Connect.
const (
	MetadataUserID    = "user-id"
	MetadataUserName  = "user-name"
	MetadataUserImage = "user-image"
	MetadataRole      = "role"
)

type CallServiceServer interface {
	Connect(CallService_ConnectServer) error
}

type CallService_ConnectServer interface {
	Send(*structpb.Struct) error
	Recv() (*structpb.Struct, error)
	grpc.ServerStream
}

type callServiceConnectServer struct {
	grpc.ServerStream
}

func (x *callServiceConnectServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

func (x *callServiceConnectServer) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func _CallService_Connect_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(CallServiceServer).Connect(&callServiceConnectServer{stream})
}

var CallService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CallServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Connect",
			Handler:       _CallService_Connect_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "callwatch/v1/call.proto",
}

func RegisterCallServiceServer(s grpc.ServiceRegistrar, srv CallServiceServer) {
	s.RegisterService(&CallService_ServiceDesc, srv)
}

type CallServiceClient interface {
	Connect(ctx context.Context, opts ...grpc.CallOption) (CallService_ConnectClient, error)
}

type callServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCallServiceClient(cc grpc.ClientConnInterface) CallServiceClient {
	return &callServiceClient{cc}
}

func (c *callServiceClient) Connect(ctx context.Context, opts ...grpc.CallOption) (CallService_ConnectClient, error) {
	stream, err := c.cc.NewStream(ctx, &CallService_ServiceDesc.Streams[0], CallService_Connect_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	return &callServiceConnectClient{stream}, nil
}

type CallService_ConnectClient interface {
	Send(*structpb.Struct) error
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type callServiceConnectClient struct {
	grpc.ClientStream
}

func (x *callServiceConnectClient) Send(m *structpb.Struct) error {
	return x.ClientStream.SendMsg(m)
}

func (x *callServiceConnectClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
