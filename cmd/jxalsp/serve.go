package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/corymhall/jxalsp/config"
	jxadebug "github.com/corymhall/jxalsp/debug"
	"github.com/corymhall/jxalsp/logger"
	"github.com/corymhall/jxalsp/lsp"
	"github.com/corymhall/jxalsp/process"
	"github.com/corymhall/jxalsp/rpc"
	"github.com/corymhall/jxalsp/server"
	"github.com/corymhall/jxalsp/telemetry"
	"github.com/pulumi/pulumi/sdk/v3/go/common/util/contract"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:          "serve",
	Short:        "Serve the language server protocol over stdio",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runServe,
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().String("log-level", "", "minimum level written to the log (error, warn, info, debug, trace)")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
}

// loadConfig reads the server configuration named by --config and applies
// the flag overrides.
func loadConfig(cmd *cobra.Command) (config.Server, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServer(path)
	if err != nil {
		return config.Server{}, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		cfg.Telemetry.Exporter = "prometheus"
		cfg.Telemetry.Addr = addr
	}
	return cfg, cfg.Validate()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logFile, _ := cmd.Flags().GetString("log-file")
	logOutput := openLogFile(logFile)
	defer logOutput.Close()

	ctx := cmd.Context()
	stream := rpc.NewHeaderStream(os.Stdin, os.Stdout)
	conn := rpc.NewConn(stream)
	client := lsp.ClientDispatcher(conn)

	logger.ProgramLevel.Set(level)
	slogger := slog.New(logger.Fanout(
		slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: level}),
		logger.NewHandler(client, nil),
	))
	slog.SetDefault(slogger)
	ctx = jxadebug.WithLogger(ctx, slogger)

	version := getVersion()
	tel, err := telemetry.Init(ctx, cfg.Telemetry, version)
	if err != nil {
		return fmt.Errorf("starting telemetry: %w", err)
	}
	shutdownTelemetry := func() {
		if err := tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
			jxadebug.LogError(ctx, "error shutting down telemetry", err)
		}
	}
	defer shutdownTelemetry()

	srv := server.New(log.New(logOutput, "[jxalsp] ", log.Ldate|log.Ltime|log.Lshortfile), client,
		server.WithConfig(cfg),
		server.WithRunner(process.NewRunner(cfg.MaxConcurrentRuns)),
		server.WithTelemetry(tel),
		server.WithVersion(version),
		server.WithExit(func(code int) {
			shutdownTelemetry()
			os.Exit(code)
		}),
	)
	defer func() {
		if err := srv.Shutdown(ctx); err != nil {
			jxadebug.LogError(ctx, "error shutting down server", err)
		}
	}()
	jxadebug.Info.Log(ctx, "starting jxalsp", slog.String("version", version), slog.Int("pid", os.Getpid()))
	return conn.Run(ctx, lsp.ServerHandler(srv, rpc.MethodNotFound))
}

func openLogFile(filename string) *os.File {
	err := os.MkdirAll(filepath.Dir(filename), 0o755)
	contract.AssertNoErrorf(err, "failed to create log directory for %s", filename)
	logfile, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o666)
	contract.AssertNoErrorf(err, "failed to open log file: %s", filename)
	return logfile
}
