package main

import (
	"bytes"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/s3m-esports/standings/internal/adapters/http/auth"
	"github.com/s3m-esports/standings/internal/domain/model"
)

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	Convey("Given the token command", t, func() {
		Convey("When a moderator token is minted", func() {
			out, err := execute("token", "--subject", "mod-1", "--role", "moderator", "--secret", "cli-secret")
			So(err, ShouldBeNil)

			Convey("Then it verifies with the same secret", func() {
				actor, err := auth.NewTokens("cli-secret", "standings").Verify(strings.TrimSpace(out))
				So(err, ShouldBeNil)
				So(actor, ShouldResemble, model.Actor{ID: "mod-1", Role: model.RoleModerator})
			})
		})

		Convey("When the role is unknown", func() {
			_, err := execute("token", "--role", "root", "--secret", "cli-secret")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestCommandsRegistered(t *testing.T) {
	Convey("Given the root command", t, func() {
		var names []string
		for _, c := range rootCmd.Commands() {
			names = append(names, c.Name())
		}
		So(names, ShouldContain, "seed")
		So(names, ShouldContain, "verify")
		So(names, ShouldContain, "watch")
		So(names, ShouldContain, "export")
		So(names, ShouldContain, "recompute")
	})
}
