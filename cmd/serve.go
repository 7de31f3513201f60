package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/pubcask/pubcask/internal/httpserve"
	"github.com/pubcask/pubcask/internal/server"
	"github.com/pubcask/pubcask/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the package repository server",
	Long:  `Start the HTTP server speaking the pub repository protocol.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	a, err := server.NewServerApp()
	if err != nil {
		logger.Fatal("Failed to initialize server", "error", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e = httpserve.RegisterRoutes(e, a)

	// Shut down cleanly on SIGINT/SIGTERM. In-flight publish sessions
	// are dropped; clients restart from the initiate step.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logger.Info("Received signal, shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown failed", "error", err)
		}
		if err := a.Close(); err != nil {
			logger.Error("App cleanup failed", "error", err)
		}
	}()

	logger.Info("Starting server",
		"port", a.Config.Server.Port,
		"base_url", a.Config.Server.BaseURL,
		"backend", a.Config.Storage.Backend)
	if err := e.Start(fmt.Sprintf(":%d", a.Config.Server.Port)); err != nil {
		logger.Info("Server stopped", "reason", err)
	}
}
