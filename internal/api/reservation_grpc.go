package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The reservation service speaks google.protobuf.Struct messages, so it is
// described by hand instead of generated from a .proto file.
const reservationServiceName = "tablebook.reservation.v1.ReservationService"

const (
	methodGetAvailableSlots = "/" + reservationServiceName + "/GetAvailableSlots"
	methodCreateBooking     = "/" + reservationServiceName + "/CreateBooking"
	methodCancelBooking     = "/" + reservationServiceName + "/CancelBooking"
	methodUpdateStatus      = "/" + reservationServiceName + "/UpdateStatus"
	methodAssignTable       = "/" + reservationServiceName + "/AssignTable"
	methodListBookings      = "/" + reservationServiceName + "/ListBookings"
	methodStats             = "/" + reservationServiceName + "/Stats"
)

type ReservationServiceServer interface {
	GetAvailableSlots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AssignTable(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListBookings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(ReservationServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call structMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ReservationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ReservationServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ReservationServiceDesc = grpc.ServiceDesc{
	ServiceName: reservationServiceName,
	HandlerType: (*ReservationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAvailableSlots", Handler: unaryHandler(methodGetAvailableSlots, ReservationServiceServer.GetAvailableSlots)},
		{MethodName: "CreateBooking", Handler: unaryHandler(methodCreateBooking, ReservationServiceServer.CreateBooking)},
		{MethodName: "CancelBooking", Handler: unaryHandler(methodCancelBooking, ReservationServiceServer.CancelBooking)},
		{MethodName: "UpdateStatus", Handler: unaryHandler(methodUpdateStatus, ReservationServiceServer.UpdateStatus)},
		{MethodName: "AssignTable", Handler: unaryHandler(methodAssignTable, ReservationServiceServer.AssignTable)},
		{MethodName: "ListBookings", Handler: unaryHandler(methodListBookings, ReservationServiceServer.ListBookings)},
		{MethodName: "Stats", Handler: unaryHandler(methodStats, ReservationServiceServer.Stats)},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterReservationServiceServer(s grpc.ServiceRegistrar, srv ReservationServiceServer) {
	s.RegisterService(&ReservationServiceDesc, srv)
}

// ReservationClient calls the reservation service over a client connection.
type ReservationClient struct {
	cc grpc.ClientConnInterface
}

func NewReservationClient(cc grpc.ClientConnInterface) *ReservationClient {
	return &ReservationClient{cc: cc}
}

// Call invokes method (for example "CreateBooking") with a JSON-like request.
func (c *ReservationClient) Call(ctx context.Context, method string, req map[string]interface{}, opts ...grpc.CallOption) (map[string]interface{}, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+reservationServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
