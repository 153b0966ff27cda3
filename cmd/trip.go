package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tripCmd = &cobra.Command{
	Use:   "trip <trip_id>",
	Short: "Shows the stop-by-stop timeline of a trip",
	Args:  cobra.ExactArgs(1),
	RunE:  trip,
}

var tripShowShape bool

func init() {
	tripCmd.Flags().BoolVarP(&tripShowShape, "shape", "s", false, "Print the trip's shape points instead of its stops")
}

func trip(cmd *cobra.Command, args []string) error {
	tripID := args[0]

	resolver, err := getResolver()
	if err != nil {
		return err
	}

	if tripShowShape {
		points, err := resolver.TripShape(tripID)
		if err != nil {
			return err
		}
		for _, pt := range points {
			fmt.Printf("%f,%f\n", pt.Lat, pt.Lon)
		}
		return nil
	}

	calls, err := resolver.TripTimeline(tripID)
	if err != nil {
		return err
	}

	for _, call := range calls {
		fmt.Printf("%s  %s  %s\n", call.Arrival, call.Departure, call.Stop.Name)
	}

	return nil
}
