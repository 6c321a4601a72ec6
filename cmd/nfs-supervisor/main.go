package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paulissoft/nfs-server-alpine/internal/logger"
	"github.com/paulissoft/nfs-server-alpine/pkg/config"
	"github.com/paulissoft/nfs-server-alpine/pkg/supervisor"
	"github.com/spf13/afero"
)

// options are the command line flags.
type options struct {
	configPath  string
	printConfig bool
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("nfs-supervisor", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", os.Getenv(config.ConfigFileEnv), "Path to the configuration file (YAML or TOML)")
	fs.BoolVar(&opts.printConfig, "print-config", false, "Print the effective configuration and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("Invalid command line: %v", err)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	dump, err := config.Dump(cfg)
	if err != nil {
		log.Fatalf("Failed to render configuration: %v", err)
	}
	if opts.printConfig {
		fmt.Print(dump)
		return
	}

	logCloser, err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	os.Exit(run(cfg, dump, logCloser))
}

// run supervises the NFS stack and returns the process exit status.
func run(cfg *config.Config, dump string, logCloser io.Closer) int {
	defer func() { _ = logCloser.Close() }()

	logger.Info("NFS server supervisor starting")
	logger.Debug("Effective configuration:\n%s", dump)

	probe, err := config.CreateProbe(&cfg.Supervisor.Probe)
	if err != nil {
		logger.Error("Failed to create process probe: %v", err)
		return 1
	}

	metricsResult := config.InitializeMetrics(cfg)
	sup := config.CreateSupervisor(afero.NewOsFs(), cfg, probe, metricsResult)

	// SIGINT and SIGTERM cancel ctx; the supervisor then runs the shutdown
	// sequence itself.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsDone := make(chan struct{})
	metricsCtx, stopMetrics := context.WithCancel(context.Background())
	if server := metricsResult.NewServer(sup.Health); server != nil {
		go func() {
			defer close(metricsDone)
			if err := server.Start(metricsCtx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	} else {
		close(metricsDone)
	}

	err = sup.Run(ctx)

	stopMetrics()
	select {
	case <-metricsDone:
	case <-time.After(5 * time.Second):
		logger.Warn("Metrics server did not stop in time")
	}

	if err != nil {
		logger.Error("Supervisor exited: %v", err)
	}
	return supervisor.ExitCode(err)
}
