// Command wyrm-client connects a single player session to a wyrm-server
// instance: it resolves the host, completes the join handshake, and
// drives the client's predict/reconcile tick loop until disconnected or
// a shutdown signal arrives.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"wyrm/internal/client"
	"wyrm/internal/lifecycle"
	"wyrm/internal/logging"
)

type appConfig struct {
	host     string
	port     int
	username string
	logFile  string
	logLevel string
}

func parseFlags() *appConfig {
	cfg := &appConfig{}
	ip := flag.String("ip", "127.0.0.1", "Server address to connect to")
	port := flag.Int("port", 9999, "Server UDP port")
	name := flag.String("name", "player", "Username to join with")
	logFile := flag.String("log-file", "", "Log file path (empty logs to stderr)")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	flag.Parse()

	cfg.host = *ip
	cfg.port = *port
	cfg.username = *name
	cfg.logFile = *logFile
	cfg.logLevel = *logLevel
	return cfg
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg := parseFlags()

	log, err := logging.New(logging.Options{Level: cfg.logLevel, File: cfg.logFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "wyrm-client: logger init: %v\n", err)
		return 1
	}
	defer log.Sync()

	sess, err := client.New(client.Config{Host: cfg.host, Port: cfg.port, Username: cfg.username}, log)
	if err != nil {
		log.Error("client_init_failed", zap.Error(err))
		return 1
	}
	defer sess.Close()

	if err := sess.Connect(); err != nil {
		log.Error("connect_failed", zap.Error(err))
		return 1
	}

	ctl := lifecycle.New()
	defer ctl.Close()

	log.Info("client_starting", zap.String("host", cfg.host), zap.Int("port", cfg.port), zap.String("name", cfg.username))
	sess.Run(ctl.Done())
	log.Info("client_stopped", zap.String("state", sess.State().String()))
	return 0
}
