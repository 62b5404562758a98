package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var offlineDocPath string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the response caches",
}

var cacheActivateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Drop caches from older versions and precache the offline page",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := transport.Activate(cmd.Context()); err != nil {
			return fmt.Errorf("activate caches: %w", err)
		}

		doc := []byte("<!doctype html><title>Offline</title><p>You are offline.</p>")
		if offlineDocPath != "" {
			data, err := os.ReadFile(offlineDocPath)
			if err != nil {
				return fmt.Errorf("read offline document: %w", err)
			}
			doc = data
		}
		if err := transport.PrecacheOffline(cmd.Context(), doc); err != nil {
			return fmt.Errorf("precache offline document: %w", err)
		}

		fmt.Println("caches activated")
		return nil
	},
}

func init() {
	cacheActivateCmd.Flags().StringVar(&offlineDocPath, "offline-doc", "", "path to the offline fallback document")
	cacheCmd.AddCommand(cacheActivateCmd)
	rootCmd.AddCommand(cacheCmd)
}
