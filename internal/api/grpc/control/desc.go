package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "mqttstat.control.v1.ControlService"

// Method names.
const (
	MethodStartAlarm = "StartAlarm"
	MethodStopAlarm  = "StopAlarm"
	MethodGetStatus  = "GetStatus"
)

// ControlServer is the server API of the control service.
type ControlServer interface {
	// StartAlarm starts the alarm with the configured ramp and reports whether it was idle.
	StartAlarm(ctx context.Context, req *emptypb.Empty) (*wrapperspb.BoolValue, error)
	// StopAlarm stops a ringing alarm.
	StopAlarm(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error)
	// GetStatus describes the alarm, the broker connection and the device.
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes the control service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodStartAlarm, ControlServer.StartAlarm),
		unaryMethod(MethodStopAlarm, ControlServer.StopAlarm),
		unaryMethod(MethodGetStatus, ControlServer.GetStatus),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mqttstat/control/v1/control.proto",
}

// RegisterControlServer registers srv on s.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unaryMethod builds the handler of a unary method whose request is an empty message.
func unaryMethod[Resp proto.Message](
	name string,
	call func(ControlServer, context.Context, *emptypb.Empty) (Resp, error),
) grpc.MethodDesc {
	fullMethod := fullMethodName(name)

	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(
			srv any,
			ctx context.Context,
			dec func(any) error,
			interceptor grpc.UnaryServerInterceptor,
		) (any, error) {
			in := new(emptypb.Empty)
			if err := dec(in); err != nil {
				return nil, err
			}

			if interceptor == nil {
				return call(srv.(ControlServer), ctx, in) //nolint:forcetypeassert // Guaranteed by HandlerType.
			}

			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}

			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ControlServer), ctx, req.(*emptypb.Empty)) //nolint:forcetypeassert // Same as above.
			}

			return interceptor(ctx, in, info, handler)
		},
	}
}

func fullMethodName(method string) string {
	return "/" + ServiceName + "/" + method
}

// Client calls the control service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient returns a client using cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// StartAlarm starts the alarm and reports whether it was idle.
func (c *Client) StartAlarm(ctx context.Context, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, fullMethodName(MethodStartAlarm), new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// StopAlarm stops a ringing alarm.
func (c *Client) StopAlarm(ctx context.Context, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethodName(MethodStopAlarm), new(emptypb.Empty), new(emptypb.Empty), opts...)
}

// GetStatus fetches the agent status.
func (c *Client) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethodName(MethodGetStatus), new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
