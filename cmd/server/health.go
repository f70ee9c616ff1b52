package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/booking-sync/backend/internal/config"
)

var healthAddr string

// healthCmd probes a running server; used as the container HEALTHCHECK.
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := healthAddr
		if addr == "" {
			cfg, err := config.LoadConfig(configDir)
			if err != nil {
				return err
			}
			addr = cfg.Server.Addr
		}
		return runHealthCheck(cmd.Context(), addr)
	},
}

func init() {
	healthCmd.Flags().StringVar(&healthAddr, "addr", "", "server address (defaults to server.addr)")
	rootCmd.AddCommand(healthCmd)
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(ctx context.Context, addr string) error {
	url := healthURL(addr)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %s", resp.Status)
	}
	return nil
}

// healthURL turns a listen address such as ":8080" into a probe URL.
func healthURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimSuffix(addr, "/") + "/api/health"
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/api/health"
}
