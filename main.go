package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kasuganosora/autoinvite/config"
	mw "github.com/kasuganosora/autoinvite/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgPath   string
	tokenOp   string
	tokenTTL  time.Duration
	noConsole bool
)

// rootCmd runs the plugin host.
var rootCmd = &cobra.Command{
	Use:   "autoinvite",
	Short: "Invite nearby unaffiliated players to your free company",
	Long: `autoinvite scans the players around you and invites those without a
free company, one at a time, with a configurable delay between invites.

Type /fcinvite on the console to start a run, or /fcinvite config to show
the settings. The same actions are available over the control API.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// tokenCmd mints a control API token.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a control API token",
	Long: `Sign a control API token with security.jwt_secret.

The token is sent as "Authorization: Bearer <token>" or, for the SSE
stream, as ?token=<token>.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config/config.yaml", "Config file")
	rootCmd.Flags().BoolVar(&noConsole, "no-console", false, "Do not read commands from stdin")

	tokenCmd.Flags().StringVar(&tokenOp, "operator", "", "Who the token is for (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (default security.jwt_ttl_h)")
	tokenCmd.MarkFlagRequired("operator")

	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Server.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var in io.Reader
	if !noConsole {
		in = os.Stdin
	}
	return serve(ctx, cfg, logger, in)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	ttl := tokenTTL
	if ttl <= 0 {
		ttl = cfg.Security.JWTTTLH
	}
	tok, err := mw.GenerateToken(tokenOp, cfg.Security.JWTSecret, ttl)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}

// detached returns a context for shutdown work that outlives ctx.
func detached(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
