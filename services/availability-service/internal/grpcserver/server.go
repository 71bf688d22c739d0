package grpcserver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/apptslots/libs/grpcx"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/profile"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/service"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "apptslots.availability.v1.Availability"

// AvailabilityServer exchanges structpb.Struct messages so the service needs
// no generated stubs.
//
// GetSlots takes {profile_id, date, timezone?, duration?} and returns
// {slots: [{label, start_time, end_time}]}. GetMonthAvailability takes
// {profile_id, year, month, timezone?, duration?} and returns
// {days: {"YYYY-MM-DD": bool}}.
type AvailabilityServer interface {
	GetSlots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMonthAvailability(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSlots", Handler: unaryHandler("GetSlots", AvailabilityServer.GetSlots)},
		{MethodName: "GetMonthAvailability", Handler: unaryHandler("GetMonthAvailability", AvailabilityServer.GetMonthAvailability)},
	},
	Streams: []grpc.StreamDesc{},
}

type method func(AvailabilityServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call method) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AvailabilityServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AvailabilityServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type server struct {
	svc    *service.Service
	logger *slog.Logger
}

// NewServer builds a gRPC server with tracing, request ids and call logging.
func NewServer(logger *slog.Logger) *grpc.Server {
	return grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcx.UnaryServerRequestIDInterceptor(),
			grpcx.UnaryServerLoggingInterceptor(logger),
		),
	)
}

// Register installs the availability service and a health service that
// reports it as serving.
func Register(grpcServer *grpc.Server, svc *service.Service, logger *slog.Logger) *health.Server {
	grpcServer.RegisterService(&ServiceDesc, &server{svc: svc, logger: logger})

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)
	return hs
}

func (s *server) GetSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := req.GetFields()
	slots, err := s.svc.Slots(ctx, service.SlotsRequest{
		ProfileID: f["profile_id"].GetStringValue(),
		Date:      f["date"].GetStringValue(),
		ViewerTZ:  f["timezone"].GetStringValue(),
		Duration:  int(f["duration"].GetNumberValue()),
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	list := make([]any, len(slots))
	for i, sl := range slots {
		list[i] = map[string]any{
			"label":      sl.Label(),
			"start_time": sl.Start.Format(time.RFC3339),
			"end_time":   sl.End.Format(time.RFC3339),
		}
	}
	return newStruct(map[string]any{"slots": list})
}

func (s *server) GetMonthAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := req.GetFields()
	days, err := s.svc.Month(ctx, service.MonthRequest{
		ProfileID: f["profile_id"].GetStringValue(),
		Year:      int(f["year"].GetNumberValue()),
		Month:     time.Month(int(f["month"].GetNumberValue())),
		ViewerTZ:  f["timezone"].GetStringValue(),
		Duration:  int(f["duration"].GetNumberValue()),
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	out := make(map[string]any, len(days))
	for d, ok := range days {
		out[d] = ok
	}
	return newStruct(map[string]any{"days": out})
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return st, nil
}

func (s *server) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, profile.ErrInvalidID),
		errors.Is(err, availability.ErrDateRequired),
		errors.Is(err, availability.ErrInvalidDate),
		errors.Is(err, availability.ErrInvalidDuration),
		errors.Is(err, availability.ErrInvalidMonth):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrBusyUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	s.logger.Error("availability rpc failed", "err", err, "request_id", grpcx.RequestIDFromContext(ctx))
	return status.Error(codes.Internal, "failed to compute availability")
}
