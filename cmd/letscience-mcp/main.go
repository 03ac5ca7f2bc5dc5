// Package main provides the stdio entry point of the LetScience MCP server.
// It needs no database: drug names resolve against the curated catalog.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/letscience-intel-server/internal/config"
	"github.com/letscience-intel-server/internal/domain"
	"github.com/letscience-intel-server/internal/mcp"
)

func main() {
	cfg := config.LoadLiteConfig()

	// stdout carries the protocol, so logs go to stderr
	logger, err := config.NewLogger(domain.LoggingConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: "stderr",
	})
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	if err := cfg.EnsureDataDir(); err != nil {
		logger.WithError(err).Fatal("Failed to create data directory")
	}

	server, err := mcp.NewServer(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping MCP server...")
		cancel()
	}()

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("MCP server failed")
	}

	logger.Info("LetScience MCP server stopped")
}
