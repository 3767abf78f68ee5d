package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ironsheep/sign-finder-mcp/internal/config"
	"github.com/ironsheep/sign-finder-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

type args struct {
	Config   string `arg:"-c,--config,env:SIGN_FINDER_CONFIG" help:"TOML file overriding the default pipeline configuration"`
	LogLevel string `arg:"-l,--log-level,env:SIGN_FINDER_LOG_LEVEL" default:"info" help:"trace, debug, info, warn or error"`
	LogJSON  bool   `arg:"--log-json,env:SIGN_FINDER_LOG_JSON" help:"write JSON log lines instead of console output"`
}

func (args) Description() string {
	return "sign-finder-mcp - MCP server that locates signs by their three finder markers\n\n" +
		"This server communicates via MCP protocol over stdin/stdout.\n" +
		"Configure it in your MCP client (e.g., Claude Desktop)."
}

func (args) Version() string {
	return fmt.Sprintf("sign-finder-mcp %s (built %s, commit %s)", Version, BuildTime, GitCommit)
}

func main() {
	var a args
	arg.MustParse(&a)

	// stdout is for the MCP protocol
	level, err := zerolog.ParseLevel(a.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q\n", a.LogLevel)
		os.Exit(2)
	}
	zerolog.SetGlobalLevel(level)
	if a.LogJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	cfg := config.Default()
	if a.Config != "" {
		cfg, err = config.Load(a.Config)
		if err != nil {
			log.Fatal().Err(err).Str("path", a.Config).Msg("failed to load configuration")
		}
	}

	server.Version = Version
	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Strs("methods", cfg.Methods).
		Msg("sign finder MCP server starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.New(cfg).Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
