package api

import (
	"context"
	"errors"
	"net/http"

	"tablebook/internal/domain"
	"tablebook/internal/service"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const slotTakenMessage = "this time is no longer available, please pick another"

// errorBody is the JSON error envelope of the HTTP API.
type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
	Field  string `json:"field,omitempty"`
}

// httpError maps a service error to a status code and response body.
func httpError(err error) (int, errorBody) {
	body := errorBody{Error: err.Error(), Reason: service.ErrorReason(err)}

	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrSlotUnavailable):
		body.Error = slotTakenMessage
		return http.StatusConflict, body
	case errors.Is(err, domain.ErrTableUnavailable),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrConcurrentModification):
		return http.StatusConflict, body
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, body
	case errors.As(err, &verr):
		body.Field = verr.Field
		return http.StatusBadRequest, body
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, body
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, body
	case errors.Is(err, domain.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		body.Error = "service temporarily unavailable"
		return http.StatusServiceUnavailable, body
	default:
		body.Error = "internal error"
		return http.StatusInternalServerError, body
	}
}

// grpcError maps a service error to a gRPC status.
func grpcError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrSlotUnavailable):
		code, msg = codes.FailedPrecondition, slotTakenMessage
	case errors.Is(err, domain.ErrInvalidTransition):
		code = codes.FailedPrecondition
	case errors.Is(err, domain.ErrTableUnavailable), errors.Is(err, domain.ErrConcurrentModification):
		code = codes.AlreadyExists
	case errors.Is(err, domain.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrValidation):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrRateLimited):
		code = codes.ResourceExhausted
	case errors.Is(err, domain.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		code, msg = codes.Unavailable, "service temporarily unavailable"
	default:
		code, msg = codes.Internal, "internal error"
	}
	return status.Error(code, msg)
}
