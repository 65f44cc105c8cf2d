package rpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rwandaorbitguard/orbit-guard/internal/mockdata"
	"github.com/rwandaorbitguard/orbit-guard/internal/prediction"
	"github.com/rwandaorbitguard/orbit-guard/internal/scene"
	"github.com/rwandaorbitguard/orbit-guard/kb"
)

// ErrInvalidArgument marks malformed request documents.
var ErrInvalidArgument = errors.New("invalid argument")

// ToStatusError maps domain errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, kb.ErrObjectNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, prediction.ErrMissingField),
		errors.Is(err, prediction.ErrInvalidField):
		return status.Error(codes.InvalidArgument, prediction.Message(err))

	case errors.Is(err, prediction.ErrRequestPending):
		return status.Error(codes.ResourceExhausted, prediction.Message(err))

	case errors.Is(err, kb.ErrObjectExists):
		return status.Error(codes.AlreadyExists, err.Error())

	case errors.Is(err, mockdata.ErrEmptyPool),
		errors.Is(err, scene.ErrStopped):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, prediction.ErrPredictionFailed):
		return status.Error(codes.Unavailable, prediction.Message(err))

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
