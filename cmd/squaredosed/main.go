package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/squaredose/squaredosed/internal/api"
	"github.com/squaredose/squaredosed/internal/config"
	"github.com/squaredose/squaredosed/pkg/actuator"
	"github.com/squaredose/squaredosed/pkg/dosinghead"
	"github.com/squaredose/squaredosed/pkg/dosinglog"
	"github.com/squaredose/squaredosed/pkg/events"
	"github.com/squaredose/squaredosed/pkg/log"
	"github.com/squaredose/squaredosed/pkg/schedule"
	"github.com/squaredose/squaredosed/pkg/storage"
	"github.com/squaredose/squaredosed/pkg/tasks"
	"github.com/squaredose/squaredosed/pkg/types"
	"github.com/squaredose/squaredosed/pkg/wallclock"
	"github.com/squaredose/squaredosed/pkg/wifi"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "squaredosed",
	Short:   "SquareDose four-head peristaltic doser firmware",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"squaredosed version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("data-dir", "", "Override the persisted data directory")
	rootCmd.PersistentFlags().String("listen-addr", "", "Override the HTTP listen address")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(calibrateCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}

	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("listen-addr"); v != "" {
		cfg.ListenAddr = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = log.Level(v)
	}
	if jsonSet, _ := cmd.Flags().GetBool("log-json"); jsonSet {
		cfg.LogJSON = true
	}
	return cfg, nil
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	if logLevel == "" {
		logLevel = string(log.InfoLevel)
	}
	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// components holds every long-lived handle the composition root wires
// together, so both serveCmd and calibrateCmd can share the construction
// logic without standing up the HTTP server or task fabric.
type components struct {
	store     *storage.BoltStore
	heads     *dosinghead.Heads
	scheduler *schedule.Manager
	logs      *dosinglog.Manager
	wifiSup   *wifi.Supervisor
	broker    *events.Broker
	clock     *wallclock.Clock
}

func buildComponents(cfg config.Config) (*components, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening persistence store: %w", err)
	}

	deviceID, err := config.LoadOrCreateDeviceIdentity(store)
	if err != nil {
		store.Close()
		return nil, err
	}

	calStore := dosinghead.NewCalibrationStore(store)
	heads := dosinghead.NewHeads(actuator.NewSimulatedHBridge(), calStore, dosinghead.NewSystemClock())
	if err := heads.Begin(); err != nil {
		store.Close()
		return nil, types.NewFatalError("dosinghead", err)
	}

	scheduleMgr := schedule.NewManager(schedule.NewStore(store))
	if err := scheduleMgr.Begin(); err != nil {
		store.Close()
		return nil, types.NewFatalError("schedule", err)
	}

	logMgr := dosinglog.NewManager(dosinglog.NewStore(store))
	scheduleMgr.SetDosingLog(logMgr)

	radio := wifi.NewSimulatedRadio()
	wifiSup := wifi.New(radio, wifi.NewCredentialStore(store), deviceID, wifi.NewSystemClock())
	if err := wifiSup.Begin(); err != nil {
		store.Close()
		return nil, types.NewFatalError("wifi", err)
	}

	broker := events.NewBroker()
	clock := wallclock.New()

	return &components{
		store:     store,
		heads:     heads,
		scheduler: scheduleMgr,
		logs:      logMgr,
		wifiSup:   wifiSup,
		broker:    broker,
		clock:     clock,
	}, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dosing engine, scheduler, Wi-Fi supervisor, and control API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		comps, err := buildComponents(cfg)
		if err != nil {
			return err
		}
		defer comps.store.Close()

		comps.broker.Start()
		defer comps.broker.Stop()

		fabric := tasks.NewFabric(comps.heads, comps.scheduler, comps.logs, comps.wifiSup, comps.broker, comps.clock)
		fabric.Start()
		defer fabric.Stop()

		server := api.NewServer(comps.heads, comps.scheduler, comps.logs, comps.wifiSup, comps.broker, comps.clock)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.ListenAddr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-errCh:
			if err != nil {
				fmt.Fprintf(os.Stderr, "\napi server error: %v\n", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			return fmt.Errorf("failed to shut down api server: %w", err)
		}
		return nil
	},
}

var calibrateCmd = &cobra.Command{
	Use:   "calibrate HEAD ACTUAL_VOLUME_ML",
	Short: "Record a manual calibration measurement for one head",
	Long: `Runs a calibration dose on the given head at the current rate,
then records the actual measured volume to recompute its mL/second rate.
The device does not need to be running "serve" to use this command.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var head int
		var actualVolumeML float64
		if _, err := fmt.Sscanf(args[0], "%d", &head); err != nil {
			return fmt.Errorf("invalid head: %v", err)
		}
		if _, err := fmt.Sscanf(args[1], "%f", &actualVolumeML); err != nil {
			return fmt.Errorf("invalid actual volume: %v", err)
		}
		if head < 0 || head >= types.NumHeads {
			return fmt.Errorf("head must be in 0..%d", types.NumHeads-1)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		comps, err := buildComponents(cfg)
		if err != nil {
			return err
		}
		defer comps.store.Close()

		cal := comps.heads.Head(head).CalibrationData()
		fmt.Printf("head %d: running calibration dose at current rate %.3f mL/s\n", head, cal.MLPerSecond)
		result, err := comps.heads.Head(head).Dispense(types.CalibrationDoseVolumeML)
		if err != nil {
			return fmt.Errorf("calibration dose failed: %w", err)
		}
		fmt.Printf("dispensed for %dms (estimated %.3f mL)\n", result.ActualRuntimeMS, result.EstimatedVolumeML)

		if _, err := comps.heads.Head(head).Calibrate(actualVolumeML); err != nil {
			return fmt.Errorf("recording calibration failed: %w", err)
		}

		updated := comps.heads.Head(head).CalibrationData()
		fmt.Printf("head %d calibrated: %.3f mL/s\n", head, updated.MLPerSecond)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("squaredosed version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime)
		return nil
	},
}
