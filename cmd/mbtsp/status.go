package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevenvista/MB-TSP/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show service status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}
	renderStatus(client, serverURL, cfg)
	return nil
}

func renderStatus(client *http.Client, serverURL string, cfg config.Config) {
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Broker", "%s", cfg.Broker.URL)
	printStatus("Map queues", "%s / %s", cfg.Broker.MapRequestQueue, cfg.Broker.MapResponseQueue)
	printStatus("Tour queues", "%s / %s", cfg.Broker.TourRequestQueue, cfg.Broker.TourResponseQueue)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)

	// Show recent jobs if the server is up.
	if resp != nil && resp.StatusCode == http.StatusOK {
		jobsResp, err := client.Get(serverURL + "/jobs?limit=5")
		if err == nil {
			defer jobsResp.Body.Close()
			var jobs []struct {
				ID     string `json:"id"`
				Kind   string `json:"kind"`
				MapID  string `json:"mapid"`
				Status string `json:"status"`
			}
			if json.NewDecoder(jobsResp.Body).Decode(&jobs) == nil {
				printStatus("Recent jobs", "%d", len(jobs))
				for _, j := range jobs {
					printStep("%s %s (%s) %s", j.Kind, j.ID, j.MapID, j.Status)
				}
			}
		}
	}
}
