// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/meshintel/answerstream/internal/httputil"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the research backend is reachable",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().String("base-url", "", "backend base URL (or client.base_url in config)")
	statusCmd.Flags().Duration("timeout", 15*time.Second, "health check timeout")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := clientConfigFromFlags(cmd)
	if cfg.BaseURL == "" {
		return fmt.Errorf("no backend configured: set --base-url or client.base_url in the config file")
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client := &http.Client{Timeout: timeout}
	rtt, err := httputil.CheckHealth(ctx, client, cfg.BaseURL, cfg.UserAgent)
	if err != nil {
		return err
	}

	fmt.Printf("Backend %s is up (%s)\n", cfg.BaseURL, rtt.Round(time.Millisecond))
	return nil
}
