package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/xmh1011/go-raft/transport"
)

// unary wraps one transport.Handler method into the method-handler shape
// grpc.ServiceDesc expects, decoding the request with gobCodec via dec and
// running any server interceptor exactly like generated code would.
func unary[Req any, Resp any](fn func(*Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(_ any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(in)
		}
		info := &grpc.UnaryServerInfo{FullMethod: serviceName}
		handler := func(ctx context.Context, req any) (any, error) {
			return fn(req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// serviceDesc builds the grpc.ServiceDesc a protoc-generated _grpc.pb.go
// would otherwise provide, one MethodDesc per transport.Handler method.
func serviceDesc(h transport.Handler) *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "Vote", Handler: unary(h.HandleVote)},
			{MethodName: "Poll", Handler: unary(h.HandlePoll)},
			{MethodName: "Append", Handler: unary(h.HandleAppend)},
			{MethodName: "Install", Handler: unary(h.HandleInstall)},
			{MethodName: "Configure", Handler: unary(h.HandleConfigure)},
			{MethodName: "Join", Handler: unary(h.HandleJoin)},
			{MethodName: "Leave", Handler: unary(h.HandleLeave)},
			{MethodName: "Reconfigure", Handler: unary(h.HandleReconfigure)},
			{MethodName: "OpenSession", Handler: unary(h.HandleOpenSession)},
			{MethodName: "CloseSession", Handler: unary(h.HandleCloseSession)},
			{MethodName: "KeepAlive", Handler: unary(h.HandleKeepAlive)},
			{MethodName: "Command", Handler: unary(h.HandleCommand)},
			{MethodName: "Query", Handler: unary(h.HandleQuery)},
			{MethodName: "Metadata", Handler: unary(h.HandleMetadata)},
		},
		Metadata: "raft.proto",
	}
}
