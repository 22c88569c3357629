package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/groupify/groupify/internal/adapters/repository"
	service "github.com/groupify/groupify/internal/app"
	"github.com/groupify/groupify/internal/domain/grouping"
)

func TestStatusOf(t *testing.T) {
	convey.Convey("Given errors from the layers below the API", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{NewKind("op", ErrBadRequest), http.StatusBadRequest, "bad_request"},
			{fmt.Errorf("room: %w", repository.ErrNotFound), http.StatusNotFound, "not_found"},
			{service.ErrJobNotFound, http.StatusNotFound, "not_found"},
			{grouping.ErrAlreadyPartitioned, http.StatusConflict, "already_partitioned"},
			{grouping.ErrMissingProfile, http.StatusUnprocessableEntity, "missing_profile"},
			{fmt.Errorf("%w: full", service.ErrBackpressure), http.StatusTooManyRequests, "backpressure"},
			{errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
		}

		convey.Convey("Each maps to its status and code, also when wrapped", func() {
			for _, c := range cases {
				status, code := statusOf(Wrap("api.test", c.err))
				convey.So(status, convey.ShouldEqual, c.status)
				convey.So(code, convey.ShouldEqual, c.code)
			}
		})
	})

	convey.Convey("Given an Error with a kind and a cause", t, func() {
		cause := errors.New("unexpected EOF")
		err := WrapKind("api.create_room", ErrBadRequest, cause)

		convey.Convey("Both are reachable through errors.Is", func() {
			convey.So(errors.Is(err, ErrBadRequest), convey.ShouldBeTrue)
			convey.So(errors.Is(err, cause), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldEqual, "api.create_room: bad request: unexpected EOF")
		})

		convey.Convey("Wrap of nil stays nil", func() {
			convey.So(Wrap("op", nil), convey.ShouldBeNil)
		})
	})
}
