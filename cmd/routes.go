package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"baltictransit.dev/schedule/model"
)

var routesCmd = &cobra.Command{
	Use:   "routes <mode>",
	Short: "Lists routes of a transport mode (bus, trolleybus, tram, train)",
	Args:  cobra.ExactArgs(1),
	RunE:  routes,
}

func routes(cmd *cobra.Command, args []string) error {
	mode, ok := model.ParseMode(args[0])
	if !ok {
		return fmt.Errorf("unknown mode '%s'", args[0])
	}

	resolver, err := getResolver()
	if err != nil {
		return err
	}

	rts, err := resolver.RoutesByMode(mode)
	if err != nil {
		return err
	}

	for _, route := range rts {
		fmt.Printf("%s\t%s\t%s\n", route.ID, route.ShortName, route.LongName)
	}

	return nil
}

var stopCmd = &cobra.Command{
	Use:   "stop <stop_id>",
	Short: "Lists routes serving a stop",
	Args:  cobra.ExactArgs(1),
	RunE:  stop,
}

func stop(cmd *cobra.Command, args []string) error {
	resolver, err := getResolver()
	if err != nil {
		return err
	}

	rts, err := resolver.RoutesThroughStop(args[0])
	if err != nil {
		return err
	}

	for _, route := range rts {
		fmt.Printf("%s\t%s\t%s\n", route.ID, route.Mode, route.ShortName)
	}

	return nil
}
