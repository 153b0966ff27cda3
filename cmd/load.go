package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Fetches and parses the feed into the local database",
	Args:  cobra.NoArgs,
	RunE:  load,
}

func load(cmd *cobra.Command, args []string) error {
	if feedURL == "" {
		return fmt.Errorf("feed URL is required")
	}

	manager, err := newManager()
	if err != nil {
		return err
	}

	resolver, err := manager.Load(context.Background(), feedURL)
	if err != nil {
		return err
	}

	fmt.Printf(
		"loaded feed %s, calendar %s through %s\n",
		resolver.Metadata.Hash[:12],
		resolver.Metadata.CalendarStartDate,
		resolver.Metadata.CalendarEndDate,
	)

	return nil
}
