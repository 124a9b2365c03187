package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/s3m-esports/standings/internal/loadgen"
	"github.com/s3m-esports/standings/pkg/logger"
)

var (
	host    string
	token   string
	timeout time.Duration
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "standingsctl",
	Short: "Operate a standings service",
	Long: `A command-line interface for minting tokens, seeding fake players,
verifying the served leaderboard and watching live refreshes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
			return err
		}
		if verbose {
			return logger.SetLevelString("debug")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:9080", "Base URL of the service")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("STANDINGS_TOKEN"), "Bearer token (default $STANDINGS_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "HTTP request timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func client() *loadgen.Client {
	return loadgen.NewClient(host, token, timeout)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "standingsctl: %v\n", err)
		os.Exit(1)
	}
}
