package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a handler wrapped for metrics", t, func() {
		var seen *statusRecorder
		h := MetricsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = w.(*statusRecorder)
			writeError(w, r, NewKind("test", ErrRateLimited))
		}, "test")

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/", nil))

		Convey("Then the recorder keeps the status and the API error code", func() {
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(seen, ShouldNotBeNil)
			So(seen.status, ShouldEqual, http.StatusTooManyRequests)
			So(seen.code, ShouldEqual, "rate_limited")
		})

		Convey("Then a response controller reaches the underlying writer", func() {
			So(http.NewResponseController(seen).Flush(), ShouldBeNil)
		})
	})

	Convey("Given statuses written without an API error", t, func() {
		for status, code := range map[int]string{
			http.StatusNotFound:         "not_found",
			http.StatusMethodNotAllowed: "bad_request",
			http.StatusBadGateway:       "internal_error",
			http.StatusUnauthorized:     "unauthorized",
			http.StatusTooManyRequests:  "rate_limited",
		} {
			_, got := classifyStatus(status)
			So(got, ShouldEqual, code)
		}
	})
}
