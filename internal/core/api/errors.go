package api

import (
	"context"
	"errors"

	"github.com/solatis/gridview/internal/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Auth errors mapped in auth package interceptor.
// Unknown views and records map to NOT_FOUND.
// View and request validation errors map to INVALID_ARGUMENT.
// Context timeouts map to DEADLINE_EXCEEDED.
// Anything else comes from the store and maps to UNAVAILABLE.

// errInvalid marks request validation failures raised by handlers.
var errInvalid = errors.New("invalid request")

var invalidArgument = []error{
	errInvalid,
	types.ErrEmptyPath,
	types.ErrPathTooDeep,
	types.ErrUnknownField,
	types.ErrUnknownFieldType,
	types.ErrNotSortable,
	types.ErrNotFilterable,
	types.ErrNotGroupable,
	types.ErrTooManyGroupLevels,
	types.ErrTooManyFilterValues,
	types.ErrDuplicateSpec,
}

// toStatus converts a handler error to a gRPC status error.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, types.ErrViewNotFound), errors.Is(err, types.ErrRecordNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	for _, target := range invalidArgument {
		if errors.Is(err, target) {
			return status.Error(codes.InvalidArgument, err.Error())
		}
	}
	return status.Error(codes.Unavailable, err.Error())
}
