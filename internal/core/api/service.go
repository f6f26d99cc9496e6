// Package api provides the gRPC view service.
//
// Messages are JSON-shaped objects carried as google.protobuf.Struct, so the
// service needs no generated code: each request Struct is decoded into a Go
// request type, and each response type is encoded back into a Struct.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/solatis/gridview/internal/core/auth"
	"github.com/solatis/gridview/internal/core/config"
	"github.com/solatis/gridview/internal/core/db"
	"github.com/solatis/gridview/internal/resolver"
	"github.com/solatis/gridview/internal/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "gridview.v1.ViewService"

// ViewServiceServer is the server API of the view service.
type ViewServiceServer interface {
	ResolveView(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SaveView(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListViews(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PutRecords(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteRecords(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListFilterValues(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type methodFunc func(ViewServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler adapts a ViewServiceServer method to grpc.MethodDesc.Handler.
func unaryHandler(method string, call methodFunc) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ViewServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ViewServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes the view service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ViewServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ResolveView", Handler: unaryHandler("ResolveView", ViewServiceServer.ResolveView)},
		{MethodName: "SaveView", Handler: unaryHandler("SaveView", ViewServiceServer.SaveView)},
		{MethodName: "ListViews", Handler: unaryHandler("ListViews", ViewServiceServer.ListViews)},
		{MethodName: "PutRecords", Handler: unaryHandler("PutRecords", ViewServiceServer.PutRecords)},
		{MethodName: "DeleteRecords", Handler: unaryHandler("DeleteRecords", ViewServiceServer.DeleteRecords)},
		{MethodName: "ListFilterValues", Handler: unaryHandler("ListFilterValues", ViewServiceServer.ListFilterValues)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gridview/v1/view_service.proto",
}

// RegisterViewServiceServer registers srv on s.
func RegisterViewServiceServer(s grpc.ServiceRegistrar, srv ViewServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ViewService implements ViewServiceServer.
// Thin orchestration layer delegating to the store, the resolver and the grid.
type ViewService struct {
	store    *db.Store
	resolver *resolver.Resolver
	cfg      *config.ServerConfig
	logger   *slog.Logger
}

// NewViewService creates service instance with dependencies.
func NewViewService(store *db.Store, r *resolver.Resolver, cfg *config.ServerConfig, logger *slog.Logger) (*ViewService, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if r == nil {
		return nil, fmt.Errorf("resolver cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewService{store: store, resolver: r, cfg: cfg, logger: logger}, nil
}

// serve decodes in, runs fn for the caller's site and encodes the response.
func serve[Req, Resp any](ctx context.Context, in *structpb.Struct, fn func(context.Context, types.SiteID, Req) (Resp, error)) (*structpb.Struct, error) {
	site := auth.SiteIDFromContext(ctx)
	if site == "" {
		return nil, status.Error(codes.Internal, "missing site_id in context")
	}

	var req Req
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}

	resp, err := fn(ctx, site, req)
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := toStruct(resp)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// toStruct encodes v through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// fromStruct decodes s into v through its JSON form. A nil Struct decodes as
// an empty object.
func fromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		s = new(structpb.Struct)
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
