package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/krushilnaik/constructum-mk2/internal/layout"
)

// SchedulerService is the full name of the gRPC scheduling service. Its
// messages are google.protobuf.Struct values carrying the same JSON
// documents as the HTTP API.
const SchedulerService = "constructum.v1.Scheduler"

// SchedulerServer is the server side of SchedulerService.
type SchedulerServer interface {
	Health(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PreviewCascade(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Rows(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Connectors(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var _ SchedulerServer = (*Server)(nil)

var schedulerServiceDesc = grpc.ServiceDesc{
	ServiceName: SchedulerService,
	HandlerType: (*SchedulerServer)(nil),
	Methods: []grpc.MethodDesc{
		structMethod("Health", SchedulerServer.Health),
		structMethod("PreviewCascade", SchedulerServer.PreviewCascade),
		structMethod("Rows", SchedulerServer.Rows),
		structMethod("Connectors", SchedulerServer.Connectors),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "constructum/v1/scheduler.proto",
}

// structMethod adapts a Struct-to-Struct method to a grpc.MethodDesc.
func structMethod(name string, call func(SchedulerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SchedulerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + SchedulerService + "/" + name,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(SchedulerServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// RegisterSchedulerServer registers srv on s.
func RegisterSchedulerServer(s grpc.ServiceRegistrar, srv SchedulerServer) {
	s.RegisterService(&schedulerServiceDesc, srv)
}

// NewGRPCServer creates a gRPC server with standard interceptors, registers
// the scheduler, health and reflection services, and returns the server
// ready to serve.
func NewGRPCServer(s *Server, authToken string) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(s.logger),
			LoggingInterceptor(s.logger),
			AuthInterceptor(authToken),
		),
	)

	RegisterSchedulerServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(SchedulerService, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	reflection.Register(srv)

	return srv
}

// Health returns the service health status.
func (s *Server) Health(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"status": "ok"})
}

// cascadeRequest is the PreviewCascade request document.
type cascadeRequest struct {
	TaskID string `json:"task_id"`
	datesInput
}

// PreviewCascade computes the adjustments a date change would cause.
func (s *Server) PreviewCascade(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in cascadeRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	if in.TaskID == "" {
		return nil, status.Error(codes.InvalidArgument, "task_id is required")
	}
	res, err := s.previewCascade(ctx, in.TaskID, in.datesInput)
	if err != nil {
		return nil, grpcError(err, "task")
	}
	return toStruct(res)
}

// layoutRequest is the Rows and Connectors request document. A missing
// collapsed list means the caller's saved view.
type layoutRequest struct {
	ProjectID string    `json:"project_id"`
	Collapsed *[]string `json:"collapsed"`
}

// Rows lays out the visible rows of a project.
func (s *Server) Rows(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := s.grpcChart(ctx, req)
	if err != nil {
		return nil, err
	}
	return toStruct(c)
}

// Connectors routes the dependency connectors between visible rows.
func (s *Server) Connectors(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := s.grpcChart(ctx, req)
	if err != nil {
		return nil, err
	}
	return toStruct(map[string]any{
		"timeline":   c.Timeline,
		"connectors": c.Connectors,
	})
}

func (s *Server) grpcChart(ctx context.Context, req *structpb.Struct) (*layout.Chart, error) {
	var in layoutRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	if in.ProjectID == "" {
		return nil, status.Error(codes.InvalidArgument, "project_id is required")
	}
	var explicit []string
	if in.Collapsed != nil {
		explicit = *in.Collapsed
	}
	collapsed := s.loadCollapsed(ctx, in.ProjectID, actorFromMetadata(ctx), explicit, in.Collapsed == nil)
	c, err := s.chart(ctx, in.ProjectID, collapsed)
	if err != nil {
		return nil, grpcError(err, "project")
	}
	return c, nil
}

// actorFromMetadata reads the actor from incoming metadata, the gRPC
// counterpart of HeaderActor.
func actorFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if vals := md.Get(strings.ToLower(HeaderActor)); len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}

// grpcError maps an operation error to a status error.
func grpcError(err error, what string) error {
	var ie inputError
	switch {
	case errors.As(err, &ie):
		return status.Error(codes.InvalidArgument, ie.Error())
	case notFound(err):
		return status.Error(codes.NotFound, what+" not found")
	default:
		return status.Errorf(codes.Internal, "%v", err)
	}
}

// toStruct converts any JSON-encodable value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// fromStruct decodes a Struct into v through its JSON form.
func fromStruct(st *structpb.Struct, v any) error {
	data, err := protojson.Marshal(st)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return status.Error(codes.InvalidArgument, fmt.Sprintf("decode request: %v", err))
	}
	return nil
}
