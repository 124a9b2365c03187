package auth_test

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/s3m-esports/standings/internal/adapters/http/auth"
	"github.com/s3m-esports/standings/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTokens(t *testing.T) {
	Convey("Given a token service", t, func() {
		tokens := auth.NewTokens("s3cret", "standings")
		admin := model.Actor{ID: "admin-1", Role: model.RoleAdmin}

		Convey("When a token is issued and verified", func() {
			raw, err := tokens.Issue(admin, time.Hour)
			So(err, ShouldBeNil)
			got, err := tokens.Verify(raw)

			Convey("Then the actor round-trips", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, admin)
			})

			Convey("And the request helper reads the bearer header", func() {
				r := httptest.NewRequest("GET", "/", nil)
				r.Header.Set("Authorization", "Bearer "+raw)
				got, err := tokens.FromRequest(r)
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, "admin-1")
			})
		})

		Convey("When the header is missing", func() {
			_, err := tokens.FromRequest(httptest.NewRequest("GET", "/", nil))
			So(errors.Is(err, auth.ErrMissingToken), ShouldBeTrue)
		})

		Convey("When the token was signed with another secret", func() {
			raw, _ := auth.NewTokens("other", "standings").Issue(admin, time.Hour)
			_, err := tokens.Verify(raw)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the issuer differs", func() {
			raw, _ := auth.NewTokens("s3cret", "someone-else").Issue(admin, time.Hour)
			_, err := tokens.Verify(raw)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the token has expired", func() {
			raw, _ := tokens.Issue(admin, -time.Minute)
			_, err := tokens.Verify(raw)
			So(errors.Is(err, auth.ErrExpiredToken), ShouldBeTrue)
		})

		Convey("When the role is unknown", func() {
			_, err := tokens.Issue(model.Actor{ID: "x", Role: "root"}, time.Hour)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)

			claims := auth.Claims{Role: "root", RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "x",
				Issuer:    "standings",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}}
			raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
			So(err, ShouldBeNil)
			_, err = tokens.Verify(raw)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the algorithm is none", func() {
			claims := auth.Claims{Role: model.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{
				Subject: "x", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}}
			raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
			So(err, ShouldBeNil)
			_, err = tokens.Verify(raw)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})
	})
}

func TestRateLimiter(t *testing.T) {
	Convey("Given a limiter with a burst of 3", t, func() {
		l := auth.NewRateLimiter(0.001, 3)

		Convey("Then each key gets its own burst", func() {
			for i := 0; i < 3; i++ {
				So(l.Allow("a"), ShouldBeTrue)
			}
			So(l.Allow("a"), ShouldBeFalse)
			So(l.Allow("b"), ShouldBeTrue)
			So(l.Len(), ShouldEqual, 2)
		})

		Convey("Then many keys are tracked independently", func() {
			for i := 0; i < 10; i++ {
				So(l.Allow(fmt.Sprintf("k%d", i)), ShouldBeTrue)
			}
			So(l.Len(), ShouldEqual, 10)
		})
	})
}
