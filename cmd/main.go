package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"baltictransit.dev/schedule"
	"baltictransit.dev/schedule/storage"
)

var rootCmd = &cobra.Command{
	Use:          "schedule",
	Short:        "Transit schedule tool",
	Long:         "Resolves service calendars, trip patterns and departures from GTFS schedule dumps",
	SilenceUsage: true,
}

var (
	feedURL string
	dataDir string
	verbose bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&feedURL, "feed-url", "u", "", "GTFS feed URL or path to a zip file")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "D", ".", "Directory for the schedule database")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log feed loading details")
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(departuresCmd)
	rootCmd.AddCommand(tripCmd)
	rootCmd.AddCommand(servicesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newManager() (*schedule.Manager, error) {
	s, err := storage.NewSQLiteStorage(storage.SQLiteConfig{OnDisk: true, Directory: dataDir})
	if err != nil {
		return nil, err
	}

	manager := schedule.NewManager(s)
	if verbose {
		manager.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	} else {
		manager.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))
	}

	return manager, nil
}

// Opens a Resolver over the stored feed, fetching it first if storage
// has nothing usable.
func getResolver() (*schedule.Resolver, error) {
	if feedURL == "" {
		return nil, fmt.Errorf("feed URL is required")
	}

	manager, err := newManager()
	if err != nil {
		return nil, err
	}

	resolver, err := manager.Resolve(feedURL, time.Now())
	if err == schedule.ErrNoActiveFeed {
		resolver, err = manager.Load(context.Background(), feedURL)
	}
	if err != nil {
		return nil, err
	}

	return resolver, nil
}
