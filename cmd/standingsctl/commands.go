package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/s3m-esports/standings/internal/adapters/http/auth"
	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/internal/loadgen"
)

func init() {
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newRecomputeCmd())
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		secret  string
		issuer  string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := model.Role(role)
			if !r.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			if secret == "" {
				return fmt.Errorf("--secret or $STANDINGS_JWT_SECRET is required")
			}
			raw, err := auth.NewTokens(secret, issuer).Issue(model.Actor{ID: subject, Role: r}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "Actor id placed in the token subject")
	cmd.Flags().StringVar(&role, "role", string(model.RoleAdmin), "admin, moderator or user")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("STANDINGS_JWT_SECRET"), "HS256 signing secret")
	cmd.Flags().StringVar(&issuer, "issuer", "standings", "Token issuer")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}

func newSeedCmd() *cobra.Command {
	cfg := &loadgen.Config{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Register fake players and give them stats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			cfg.BaseURL, cfg.Token, cfg.Timeout, cfg.Verbose = host, token, timeout, verbose

			stats, err := loadgen.Seed(ctx, cfg, client(), loadgen.NewGenerator(cfg.Seed))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %d, stats applied %d, stale %d, failed %d in %s\n",
				stats.PlayersRegistered, stats.StatsApplied, stats.RecomputeFailures, stats.Failed, stats.Duration.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().IntVar(&cfg.Players, "count", 100, "Number of players to seed")
	cmd.Flags().Float64Var(&cfg.VisibleRatio, "visible-ratio", 0.8, "Share of players made visible")
	cmd.Flags().IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "Concurrent workers")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", 0, "Faker seed (0 uses the clock)")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	cfg := &loadgen.Config{}
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check rank density, ordering and derived fields of the served board",
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := loadgen.Verify(cmd.Context(), cfg, client())
			if report != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "rows %d/%d stale=%t\n", report.Rows, report.Total, report.Stale)
				for _, issue := range report.Issues {
					fmt.Fprintln(out, "  -", issue)
				}
			}
			return err
		},
	}
	cmd.Flags().IntVar(&cfg.PageSize, "page-size", 100, "Rows fetched per request")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var player string
	var inbox bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print live refreshes of the leaderboard, a player card or the inbox",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			path := "/leaderboard/stream"
			switch {
			case inbox:
				path = "/inbox/stream"
			case player != "":
				path = "/players/" + player + "/stream"
			}
			out := cmd.OutOrStdout()
			err := client().Watch(ctx, path, func(f loadgen.Frame) error {
				fmt.Fprintf(out, "%s %s %s\n", time.Now().Format(time.TimeOnly), f.Event, f.Data)
				return nil
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&player, "player", "", "Watch one player card")
	cmd.Flags().BoolVar(&inbox, "inbox", false, "Watch the token holder's inbox")
	return cmd
}

func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the leaderboard as an XLSX workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			n, err := client().Export(cmd.Context(), f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "leaderboard.xlsx", "Output file")
	return cmd
}

func newRecomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Force a rank recomputation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			changed, err := client().Recompute(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d ranks changed\n", len(changed))
			for _, id := range changed {
				fmt.Fprintln(cmd.OutOrStdout(), "  -", id)
			}
			return nil
		},
	}
}
