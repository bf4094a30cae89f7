package main

import (
	"os"

	"expensetracker/internal/cli"
	"expensetracker/internal/tools"
)

func main() {
	cli.LoadEnvFile()

	// stdout carries the stdio protocol, so logs go to stderr.
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	svc := cli.InitExpenseService(logger, cfg, repo)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close expense service", "error", err)
		}
	}()

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	logger.Info("Starting expense MCP server",
		"transport", cfg.Transport,
		"db_path", repo.Path(),
		"categories_path", cfg.CategoriesPath)

	server := tools.New(svc, cfg.CategoriesPath, logger)
	err := server.Run(ctx, tools.Config{
		Transport: tools.TransportKind(cfg.Transport),
		HTTPAddr:  cfg.HTTPAddr,
		RateLimit: cfg.HTTPRateLimit,
	})
	if err != nil {
		logger.Error("MCP server stopped with error", "error", err)
		stop()
		svc.Close()
		os.Exit(1)
	}
	logger.Info("Expense MCP server stopped")
}
