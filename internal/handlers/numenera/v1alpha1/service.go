package v1alpha1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/KirkDiggler/numenera-api/internal/errors"
)

// EffortServiceName is the fully qualified gRPC service name
const EffortServiceName = "numenera.api.v1alpha1.EffortService"

// Method names
const (
	MethodOpenSession      = "OpenSession"
	MethodApplyEdit        = "ApplyEdit"
	MethodGetSession       = "GetSession"
	MethodSubmit           = "Submit"
	MethodCloseSession     = "CloseSession"
	MethodPrepareRecursion = "PrepareRecursion"
	MethodGetRollHistory   = "GetRollHistory"
	MethodClearRollHistory = "ClearRollHistory"
)

// EffortServiceServer is the server API for the Effort service. Messages are
// google.protobuf.Struct documents with camelCase fields.
type EffortServiceServer interface {
	OpenSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApplyEdit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CloseSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PrepareRecursion(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRollHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearRollHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterEffortServiceServer registers srv on s
func RegisterEffortServiceServer(s grpc.ServiceRegistrar, srv EffortServiceServer) {
	s.RegisterService(&EffortServiceDesc, srv)
}

type unaryMethod func(EffortServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodHandler(name string, call unaryMethod) grpc.MethodHandler {
	fullMethod := "/" + EffortServiceName + "/" + name

	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(EffortServiceServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(EffortServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// EffortServiceDesc describes the Effort service for grpc.Server
var EffortServiceDesc = grpc.ServiceDesc{
	ServiceName: EffortServiceName,
	HandlerType: (*EffortServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodOpenSession, Handler: methodHandler(MethodOpenSession, EffortServiceServer.OpenSession)},
		{MethodName: MethodApplyEdit, Handler: methodHandler(MethodApplyEdit, EffortServiceServer.ApplyEdit)},
		{MethodName: MethodGetSession, Handler: methodHandler(MethodGetSession, EffortServiceServer.GetSession)},
		{MethodName: MethodSubmit, Handler: methodHandler(MethodSubmit, EffortServiceServer.Submit)},
		{MethodName: MethodCloseSession, Handler: methodHandler(MethodCloseSession, EffortServiceServer.CloseSession)},
		{MethodName: MethodPrepareRecursion, Handler: methodHandler(MethodPrepareRecursion, EffortServiceServer.PrepareRecursion)},
		{MethodName: MethodGetRollHistory, Handler: methodHandler(MethodGetRollHistory, EffortServiceServer.GetRollHistory)},
		{MethodName: MethodClearRollHistory, Handler: methodHandler(MethodClearRollHistory, EffortServiceServer.ClearRollHistory)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "numenera/api/v1alpha1/effort.proto",
}

// EffortServiceClient calls the Effort service
type EffortServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewEffortServiceClient creates a client on an existing connection
func NewEffortServiceClient(cc grpc.ClientConnInterface) *EffortServiceClient {
	return &EffortServiceClient{cc: cc}
}

// Call invokes one method by name. Failures come back as *errors.Error with
// the server's code, message and metadata.
func (c *EffortServiceClient) Call(
	ctx context.Context,
	method string,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+EffortServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, errors.FromGRPCError(err)
	}
	return out, nil
}
