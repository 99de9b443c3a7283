package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mcp-imap-search/internal/config"
	"github.com/brandon/mcp-imap-search/internal/email"
	"github.com/brandon/mcp-imap-search/internal/mcp"
)

var (
	version     = "dev"
	showVersion = flag.Bool("version", false, "Show version information")
	configFile  = flag.String("config", "", "Optional config file (YAML, JSON or TOML); environment variables take precedence")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("mcp-imap-search version %s\n", version)
		os.Exit(0)
	}

	// stdout carries the protocol, so logs go to stderr
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	if cfg.LogFormat == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.WithFields(logrus.Fields{
		"mailbox": cfg.Mailbox.String(),
		"format":  cfg.ContentFormat,
	}).Info("Starting MCP IMAP search server")

	emailManager := email.NewManager(cfg, logger)

	mcp.Version = version
	server := mcp.NewServer(cfg, emailManager, logger)

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Run server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run(ctx)
	}()

	// Wait for shutdown signal, end of input or error
	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	case err := <-errChan:
		if err != nil {
			logger.WithError(err).Error("Server error")
		}
		cancel()
	}

	logger.Info("Shutting down MCP IMAP search server")
}
