package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"tablebook/internal/models"
	"tablebook/internal/service"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ReservationService implements ReservationServiceServer on top of the
// booking and directory services. Callers are trusted API clients, so guest
// identity travels in the request body.
type ReservationService struct {
	bookings  *service.BookingService
	directory *service.DirectoryService
}

func NewReservationService(bookings *service.BookingService, directory *service.DirectoryService) *ReservationService {
	return &ReservationService{bookings: bookings, directory: directory}
}

type slotsRequest struct {
	RestaurantID string `json:"restaurant_id"`
	Date         string `json:"date"`
	PartySize    int    `json:"party_size"`
}

type createBookingRequest struct {
	service.BookingRequest
	IdempotencyKey string `json:"idempotency_key"`
}

type bookingIDRequest struct {
	ID string `json:"id"`
}

type statusRequest struct {
	ID     string               `json:"id"`
	Status models.BookingStatus `json:"status"`
}

type assignTableRequest struct {
	BookingID string `json:"booking_id"`
	TableID   string `json:"table_id"`
}

type listBookingsRequest struct {
	RestaurantID string                 `json:"restaurant_id"`
	UserID       string                 `json:"user_id"`
	Date         string                 `json:"date"`
	DateFrom     string                 `json:"date_from"`
	DateTo       string                 `json:"date_to"`
	Statuses     []models.BookingStatus `json:"statuses"`
	Limit        int                    `json:"limit"`
}

type restaurantRequest struct {
	RestaurantID string `json:"restaurant_id"`
}

func (s *ReservationService) GetAvailableSlots(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req slotsRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	slots, err := s.bookings.GetAvailableSlots(ctx, req.RestaurantID, req.Date, req.PartySize)
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeStruct(map[string]interface{}{"slots": slots})
}

func (s *ReservationService) CreateBooking(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req createBookingRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	req.BookingRequest.IdempotencyKey = req.IdempotencyKey
	b, err := s.bookings.CreateBooking(ctx, req.BookingRequest)
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeStruct(map[string]interface{}{"booking": b})
}

func (s *ReservationService) CancelBooking(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req bookingIDRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	b, err := s.bookings.CancelBooking(ctx, req.ID)
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeStruct(map[string]interface{}{"booking": b})
}

func (s *ReservationService) UpdateStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req statusRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	b, err := s.bookings.UpdateStatus(ctx, req.ID, req.Status)
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeStruct(map[string]interface{}{"booking": b})
}

func (s *ReservationService) AssignTable(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req assignTableRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	b, err := s.bookings.AssignTable(ctx, req.BookingID, req.TableID)
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeStruct(map[string]interface{}{"booking": b})
}

func (s *ReservationService) ListBookings(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req listBookingsRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	page, err := s.directory.ListBookingsPage(ctx, models.BookingFilter{
		RestaurantID: req.RestaurantID,
		UserID:       req.UserID,
		Date:         req.Date,
		DateFrom:     req.DateFrom,
		DateTo:       req.DateTo,
		StatusIn:     req.Statuses,
		Limit:        req.Limit,
	})
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeStruct(page)
}

func (s *ReservationService) Stats(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req restaurantRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	stats, err := s.directory.Stats(ctx, req.RestaurantID)
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeStruct(map[string]interface{}{"stats": stats})
}

// decodeStruct converts a Struct into dst through its JSON form. Unknown
// fields are rejected.
func decodeStruct(in *structpb.Struct, dst interface{}) error {
	raw, err := protojson.Marshal(in)
	if err != nil {
		return status.Error(codes.InvalidArgument, "invalid request")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

func encodeStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}
