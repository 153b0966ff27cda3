package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"baltictransit.dev/schedule/model"
)

var departuresCmd = &cobra.Command{
	Use:   "departures <route_id> <stop_id>",
	Short: "Lists scheduled departures of a route from a stop",
	Args:  cobra.ExactArgs(2),
	RunE:  departures,
}

var (
	depDate    string
	depDayType string
)

func init() {
	departuresCmd.Flags().StringVarP(&depDate, "date", "d", "", "Service date (2006-01-02)")
	departuresCmd.Flags().StringVarP(&depDayType, "day-type", "t", "", "Schedule bucket (workdays or weekends)")
}

func departures(cmd *cobra.Command, args []string) error {
	routeID, stopID := args[0], args[1]

	if (depDate == "") == (depDayType == "") {
		return fmt.Errorf("exactly one of --date and --day-type is required")
	}

	resolver, err := getResolver()
	if err != nil {
		return err
	}

	var deps []model.Departure
	if depDate != "" {
		deps, err = resolver.StopDepartures(routeID, stopID, depDate)
	} else {
		dayType, ok := model.ParseDayType(depDayType)
		if !ok {
			return fmt.Errorf("unknown day type '%s'", depDayType)
		}
		deps, err = resolver.StopDeparturesByDayType(routeID, stopID, dayType)
	}
	if err != nil {
		return err
	}

	for _, dep := range deps {
		fmt.Printf("%s\t%s\n", dep.DepartureTime, dep.TripID)
	}

	return nil
}

var servicesCmd = &cobra.Command{
	Use:   "services <date>",
	Short: "Lists service IDs active on a date",
	Args:  cobra.ExactArgs(1),
	RunE:  services,
}

func services(cmd *cobra.Command, args []string) error {
	resolver, err := getResolver()
	if err != nil {
		return err
	}

	serviceIDs, err := resolver.ActiveServices(args[0])
	if err != nil {
		return err
	}

	for _, serviceID := range serviceIDs {
		fmt.Println(serviceID)
	}

	return nil
}
