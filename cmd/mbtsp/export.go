package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sevenvista/MB-TSP/internal/config"
	"github.com/sevenvista/MB-TSP/internal/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export <mapid>",
	Short: "Print the persisted distance table for a map as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportDistances(args[0])
	},
}

func exportDistances(mapID string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	recs, err := store.GetDistances(mapID)
	if err != nil {
		return fmt.Errorf("loading distance table for %q: %w", mapID, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}
