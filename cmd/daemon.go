package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/statuskit/statusd/internal/cmd"
	cmdopts "github.com/statuskit/statusd/internal/cmd/options"
	"github.com/statuskit/statusd/internal/config"
	"github.com/statuskit/statusd/internal/daemon"
	"github.com/statuskit/statusd/internal/flags"
)

// DaemonCmd should be used to represent the 'daemon' command.
type DaemonCmd struct {
	*cmd.BaseCmd
	Dev           bool
	Addr          string
	CheckInterval time.Duration
	NoWatch       bool
	CORSOrigins   []string
	cfgLoader     config.Loader
}

// NewDaemonCmd creates a newly configured (Cobra) command.
func NewDaemonCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &DaemonCmd{
		BaseCmd:   baseCmd,
		cfgLoader: opts.ConfigLoader,
	}

	cobraCommand := &cobra.Command{
		Use:   "daemon [--dev] [--addr]",
		Short: "Launches a `statusd` daemon instance",
		Long: "Launches a `statusd` daemon instance, which runs scheduled dual health checks " +
			"against the configured servers and serves the status API over HTTP",
		RunE: c.run,
	}

	cobraCommand.Flags().BoolVar(
		&c.Dev,
		"dev",
		false,
		"Run the daemon in development-focused mode",
	)

	cobraCommand.Flags().StringVar(
		&c.Addr,
		"addr",
		"0.0.0.0:8095",
		"Address for the daemon to bind (not applicable in --dev mode)",
	)

	cobraCommand.Flags().DurationVar(
		&c.CheckInterval,
		"check-interval",
		daemon.DefaultCheckInterval(),
		"Interval between scheduled health check cycles",
	)

	cobraCommand.Flags().BoolVar(
		&c.NoWatch,
		"no-watch",
		false,
		"Disable live reloading of the config file",
	)

	cobraCommand.Flags().StringSliceVar(
		&c.CORSOrigins,
		"cors-origin",
		nil,
		"Origin allowed to access the API cross-origin (repeatable)",
	)

	cobraCommand.MarkFlagsMutuallyExclusive("dev", "addr")

	return cobraCommand, nil
}

// run is configured (via NewDaemonCmd) to be called by the Cobra framework when the command is executed.
// It may return an error (or nil, when there is no error).
func (c *DaemonCmd) run(_ *cobra.Command, _ []string) error {
	logger := c.Logger()

	// Validate flags.
	addr := strings.TrimSpace(c.Addr)

	// Override address for dev mode.
	if c.Dev {
		devAddr := "localhost:8095"
		logger.Info("Development-focused mode", "addr", addr, "override", devAddr)
		addr = devAddr
	}

	if err := daemon.IsValidAddr(addr); err != nil {
		return err
	}

	svcOpts := []daemon.Option{
		daemon.WithCheckInterval(c.CheckInterval),
		daemon.WithConfigWatching(!c.NoWatch),
	}
	if len(c.CORSOrigins) > 0 {
		svcOpts = append(svcOpts, daemon.WithAPIOptions(daemon.WithCORSAllowOrigins(c.CORSOrigins)))
	}

	service, err := daemon.NewService(logger, c.cfgLoader, flags.ConfigFile, addr, svcOpts...)
	if err != nil {
		return fmt.Errorf("failed to create statusd daemon instance: %w", err)
	}

	// Create the signal handling context for the application.
	daemonCtx, daemonCtxCancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM, syscall.SIGINT,
	)
	defer daemonCtxCancel()

	runErr := make(chan error, 1)
	go func() {
		if err := service.StartAndManage(daemonCtx); err != nil && !errors.Is(err, context.Canceled) {
			runErr <- err
		}
		close(runErr)
	}()

	// Print --dev mode banner if required.
	if c.Dev {
		logger.Info("Launching daemon in dev mode", "addr", addr)
		banner := fmt.Sprintf("statusd daemon running in 'dev' mode.\n\n"+
			"  Status API:\thttp://%s/api/v1/status\n"+
			"  OpenAPI UI:\thttp://%s/docs\n"+
			"  Prometheus:\thttp://%s/metrics\n"+
			"  Config file:\t%s\n",
			addr, addr, addr, flags.ConfigFile)

		if flags.LogPath != "" {
			banner += fmt.Sprintf("  Log file:\t%s => (%s)\n", flags.LogPath, flags.LogLevel)
		}

		banner += "\nPress Ctrl+C to stop.\n\n"
		fmt.Print(banner)
	}

	select {
	case <-daemonCtx.Done():
		logger.Info("Shutting down daemon")
		err := <-runErr // Wait for cleanup and deferred logging.
		return err      // Graceful Ctrl+C / SIGTERM.
	case err := <-runErr:
		logger.Error("daemon exited with error", "error", err)
		return err // Propagate daemon failure.
	}
}
