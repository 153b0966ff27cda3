package model

import (
	"strings"
)

// Holds all external facing types and constants.

// Mode is the transport mode of a route. The upstream feeds encode
// mode as a substring token of the route_id (e.g. "riga_bus_46");
// ModeFromRouteID turns that into an explicit field once, at load
// time. Queries filter on the stored Mode, never on the raw ID.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeBus
	ModeTrolleybus
	ModeTram
	ModeTrain
)

func (m Mode) String() string {
	switch m {
	case ModeBus:
		return "bus"
	case ModeTrolleybus:
		return "trolleybus"
	case ModeTram:
		return "tram"
	case ModeTrain:
		return "train"
	}
	return "unknown"
}

// ParseMode maps a mode token to a Mode. Accepts the long form used
// on the query side ("trolleybus") as well as the short token found
// in route IDs ("trol").
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(s) {
	case "bus":
		return ModeBus, true
	case "trolleybus", "trol":
		return ModeTrolleybus, true
	case "tram":
		return ModeTram, true
	case "train":
		return ModeTrain, true
	}
	return ModeUnknown, false
}

// ModeFromRouteID classifies a route by the mode token embedded in
// its identifier. "trol" must be checked before "bus": trolleybus
// route IDs contain both tokens.
func ModeFromRouteID(routeID string) Mode {
	id := strings.ToLower(routeID)
	switch {
	case strings.Contains(id, "trol"):
		return ModeTrolleybus
	case strings.Contains(id, "tram"):
		return ModeTram
	case strings.Contains(id, "train"):
		return ModeTrain
	case strings.Contains(id, "bus"):
		return ModeBus
	}
	return ModeUnknown
}

// DayType is the legacy schedule bucket used when no concrete date is
// available. Workdays matches services running every weekday,
// weekends matches services running Saturday or Sunday.
type DayType int

const (
	DayTypeWorkdays DayType = iota
	DayTypeWeekends
)

func (d DayType) String() string {
	if d == DayTypeWeekends {
		return "weekends"
	}
	return "workdays"
}

func ParseDayType(s string) (DayType, bool) {
	switch s {
	case "workdays":
		return DayTypeWorkdays, true
	case "weekends":
		return DayTypeWeekends, true
	}
	return DayTypeWorkdays, false
}

type Route struct {
	ID        string
	ShortName string
	LongName  string
	Color     string
	Mode      Mode
}

type Trip struct {
	ID        string
	RouteID   string
	ServiceID string
	ShapeID   string
	Headsign  string
}

type Stop struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

// StopTime is one scheduled call of a trip at a stop. Arrival and
// Departure are canonical zero-padded "HH:MM:SS" strings; the hour
// may exceed 23 for trips continuing past midnight (GTFS convention).
// Zero-padding makes the strings ordered under plain comparison.
type StopTime struct {
	TripID       string
	StopID       string
	Arrival      string
	Departure    string
	StopSequence uint32
}

// Calendar is a weekly service pattern with a validity range. Dates
// are "20060102" strings. Weekday is a bitmask indexed by
// time.Weekday.
type Calendar struct {
	ServiceID string
	StartDate string
	EndDate   string
	Weekday   int8
}

const (
	ExceptionAdded   int8 = 1
	ExceptionRemoved int8 = 2
)

// CalendarDate overrides the weekly pattern of a service for a single
// date.
type CalendarDate struct {
	ServiceID     string
	Date          string
	ExceptionType int8
}

type ShapePoint struct {
	ShapeID  string
	Lat      float64
	Lon      float64
	Sequence uint32
}

// A vehicle departing from a stop. DepartureTime is the literal
// schedule string, overflow hours included.
type Departure struct {
	TripID        string
	DepartureTime string
}

// TripCall pairs a stop with the times a trip calls there.
type TripCall struct {
	Stop         Stop
	Arrival      string
	Departure    string
	StopSequence uint32
}
