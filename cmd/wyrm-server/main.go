// Command wyrm-server runs the authoritative game server: it loads the
// INI config, wires up logging and metrics, and drives the server
// session's net-tick loop until a shutdown signal arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"wyrm/internal/config"
	"wyrm/internal/lifecycle"
	"wyrm/internal/logging"
	"wyrm/internal/metrics"
	"wyrm/internal/server"
)

type appConfig struct {
	configPath  string
	port        int
	logFile     string
	logLevel    string
	metricsAddr string
}

func parseFlags() *appConfig {
	cfg := &appConfig{}
	configPath := flag.String("config", "", "Path to the [server] INI config file")
	port := flag.Int("port", 0, "UDP port to listen on (overrides config file; 0 keeps the config's value)")
	logFile := flag.String("log-file", "", "Log file path (empty logs to stderr)")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Address to serve /metrics on (empty disables it)")
	flag.Parse()

	cfg.configPath = *configPath
	cfg.port = *port
	cfg.logFile = *logFile
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	return cfg
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg := parseFlags()

	log, err := logging.New(logging.Options{Level: cfg.logLevel, File: cfg.logFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "wyrm-server: logger init: %v\n", err)
		return 1
	}
	defer log.Sync()

	srvCfg, err := config.Load(cfg.configPath)
	if err != nil {
		log.Error("config_load_failed", zap.Error(err))
		return 1
	}
	if cfg.port != 0 {
		srvCfg.Port = cfg.port
	}

	var metricsSrv = metrics.StartHTTP(cfg.metricsAddr)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metrics.Shutdown(ctx, metricsSrv)
	}()

	srv, err := server.New(srvCfg, log)
	if err != nil {
		log.Error("server_init_failed", zap.Error(err))
		return 1
	}
	defer srv.Close()

	ctl := lifecycle.New()
	defer ctl.Close()

	log.Info("server_starting",
		zap.Int("port", srvCfg.Port),
		zap.Int("sim_tick_rate", srvCfg.SimTickRate),
		zap.Int("net_tick_rate", srvCfg.NetTickRate),
		zap.Int("max_players", srvCfg.MaxPlayers))

	srv.Run(ctl.Done())
	log.Info("server_stopped")
	return 0
}
