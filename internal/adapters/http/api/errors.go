package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/groupify/groupify/internal/adapters/repository"
	service "github.com/groupify/groupify/internal/app"
	"github.com/groupify/groupify/internal/domain/grouping"
	"github.com/groupify/groupify/internal/domain/insight"
	"github.com/groupify/groupify/internal/domain/match"
	"github.com/groupify/groupify/internal/domain/model"
)

// ErrBadRequest is the kind of malformed requests.
var ErrBadRequest = errors.New("bad request")

// Error is an API failure tagged with the operation that produced it and
// the sentinel kind it maps to.
type Error struct {
	Op   string
	Kind error
	Err  error
}

// NewKind returns an error of kind for op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind returns err tagged with op and kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap returns err tagged with op. The kind is whatever err already is.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Kind != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// statusOf maps err to an HTTP status and error code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidRoomName),
		errors.Is(err, insight.ErrInvalidProfile),
		errors.Is(err, service.ErrInvalidMember):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrJobNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrNotInRoom):
		return http.StatusNotFound, "not_in_room"
	case errors.Is(err, grouping.ErrAlreadyPartitioned):
		return http.StatusConflict, "already_partitioned"
	case errors.Is(err, repository.ErrAlreadyExists):
		return http.StatusConflict, "conflict"
	case errors.Is(err, grouping.ErrInvalidGroupSize):
		return http.StatusUnprocessableEntity, "invalid_group_size"
	case errors.Is(err, grouping.ErrInsufficientMembers):
		return http.StatusUnprocessableEntity, "insufficient_members"
	case errors.Is(err, grouping.ErrMissingProfile),
		errors.Is(err, match.ErrMissingProfile):
		return http.StatusUnprocessableEntity, "missing_profile"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
