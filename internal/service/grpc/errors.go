package grpcsvc

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

// toStatus переводит доменную ошибку в gRPC status. Причины внутренних сбоев
// наружу не отдаются, только в лог.
func toStatus(logger *log.Entry, method string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, domain.ErrConcurrentUpdate):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, domain.ErrCartProductDuplicate), errors.Is(err, domain.ErrStoreAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case domain.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case domain.IsUnauthorized(err):
		return status.Error(codes.PermissionDenied, err.Error())
	case domain.IsValidation(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.IsConflict(err):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		logger.WithError(err).WithField("method", method).Error("request failed")
		return status.Error(codes.Internal, "internal error")
	}
}
