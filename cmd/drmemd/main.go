// Command drmemd is the DrMem core runtime entrypoint: it loads
// configuration, wires up the store/dispatcher, starts the supervised
// drivers and logic engine, and runs until interrupted.
//
// Concrete hardware drivers are out of core scope (§1); this binary's
// driver registry only knows about the local pseudo-drivers built in this
// repo (see internal/drivers). An unrecognized [[driver]].name logs a
// warning and is skipped, rather than failing the whole process, since the
// rest of the runtime (store, logic engine, clock/solar) is still useful
// without it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/drmem-io/drmem/core/clock"
	"github.com/drmem-io/drmem/core/dispatcher"
	"github.com/drmem-io/drmem/core/logicblock"
	"github.com/drmem-io/drmem/core/metrics"
	"github.com/drmem-io/drmem/core/solar"
	"github.com/drmem-io/drmem/core/store"
	"github.com/drmem-io/drmem/core/store/memory"
	"github.com/drmem-io/drmem/core/store/redis"
	"github.com/drmem-io/drmem/core/supervisor"
	"github.com/drmem-io/drmem/internal/config"
	"github.com/drmem-io/drmem/internal/drivers"
)

var (
	configPath   string
	verboseCount int
	printConfig  bool
)

var rootCmd = &cobra.Command{
	Use:   "drmemd",
	Short: "DrMem soft-real-time control system core",
	RunE:  run,
}

func main() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the TOML configuration file")
	rootCmd.Flags().CountVarP(&verboseCount, "verbose", "v", "increase log verbosity (repeatable)")
	rootCmd.Flags().BoolVar(&printConfig, "print-config", false, "print the resolved configuration and exit")

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("[drmemd] fatal startup error")
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	configureLogging(cfg)

	if printConfig {
		fmt.Printf("%+v\n", cfg)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("[drmemd] shutdown signal received")
		cancel()
	}()

	if cfg.Metrics != "" {
		go metrics.Expose(cfg.Metrics)
	}

	st := buildStore(cfg)
	disp := dispatcher.New(st)
	if cfg.MaxSettingsPerSec > 0 {
		disp.WithSettingRateLimit(cfg.MaxSettingsPerSec, int(cfg.MaxSettingsPerSec))
	}
	go disp.Run(ctx)

	var solarP *solar.Provider
	if cfg.Solar != nil {
		solarP = solar.New(cfg.Solar.Latitude, cfg.Solar.Longitude)
		go solarP.Run(ctx)
	}
	clockP := clock.New()
	go clockP.Run(ctx)

	for _, d := range cfg.Driver {
		runDriver(ctx, disp, d)
	}

	if len(cfg.Logic) > 0 {
		engine := logicblock.NewEngine(disp, disp, clockP, solarP)
		blocks, err := compileLogicBlocks(cfg.Logic)
		if err != nil {
			return err
		}
		go engine.Run(ctx, blocks)
	}

	<-ctx.Done()
	disp.CloseDrivers()
	disp.CloseClients()
	return nil
}

func configureLogging(cfg *config.Config) {
	level := logrusLevel(cfg.LogLevel)
	switch {
	case verboseCount >= 3:
		level = log.TraceLevel
	case verboseCount == 2:
		level = log.DebugLevel
	case verboseCount == 1:
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func logrusLevel(l config.LogLevel) log.Level {
	switch l {
	case config.LogTrace:
		return log.TraceLevel
	case config.LogDebug:
		return log.DebugLevel
	case config.LogWarn:
		return log.WarnLevel
	default:
		return log.InfoLevel
	}
}

func buildStore(cfg *config.Config) store.Store {
	if cfg.Backend.Kind == "streams" {
		return redis.New(redis.Options{
			Addr: cfg.Backend.Streams.Addr,
			DB:   cfg.Backend.Streams.DBN,
		})
	}
	return memory.New()
}

func runDriver(ctx context.Context, disp *dispatcher.Dispatcher, d config.Driver) {
	factory, ok := drivers.Lookup(d.Name)
	if !ok {
		log.WithField("driver", d.Name).Warn("[drmemd] no built-in driver registered under this name, skipping")
		return
	}

	handle, err := dispatcher.NewHandle(disp, d.Name, d.Prefix)
	if err != nil {
		log.WithFields(log.Fields{"driver": d.Name, "error": err}).Error("[drmemd] invalid driver prefix")
		return
	}

	sup := supervisor.New(d.Name, factory(), d.Cfg)
	go func() {
		if err := sup.Run(ctx, handle, d.MaxHistory); err != nil {
			log.WithFields(log.Fields{"driver": d.Name, "error": err}).Error("[drmemd] driver disabled")
		}
	}()
}

func compileLogicBlocks(defs []config.Logic) ([]*logicblock.Block, error) {
	var blocks []*logicblock.Block
	for _, l := range defs {
		for i, src := range l.Exprs {
			name := l.Name
			if len(l.Exprs) > 1 {
				name = fmt.Sprintf("%s[%d]", l.Name, i)
			}
			b, err := logicblock.New(name, src)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, b)
		}
	}
	return blocks, nil
}
