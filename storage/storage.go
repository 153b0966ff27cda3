package storage

import (
	"time"

	"baltictransit.dev/schedule/model"
)

type Storage interface {
	// Retrieves all feed metadata records matching the given
	// filter.
	ListFeeds(filter ListFeedsFilter) ([]*FeedMetadata, error)

	// Writes a FeedMetadata record. If a record with the same URL
	// and hash exists, it is updated.
	WriteFeedMetadata(metadata *FeedMetadata) error

	// Removes a feed metadata record.
	DeleteFeedMetadata(url string, hash string) error

	// Gets a reader for the feed with the given hash.
	GetReader(feed string) (FeedReader, error)

	// Gets a writer for the feed with the given hash.
	GetWriter(feed string) (FeedWriter, error)
}

type ListFeedsFilter struct {
	// If set, only include feeds with the given URL.
	URL string

	// If set, only include feeds with the given hash.
	Hash string
}

// Metadata for a loaded static GTFS feed. The parsed data is accessed
// via FeedReader.
type FeedMetadata struct {
	URL               string
	Hash              string
	RetrievedAt       time.Time
	CalendarStartDate string
	CalendarEndDate   string
}

// Writes GTFS records for a single feed.
//
// As stop_times.txt tends to be very large, BeginStopTimes() and
// EndStopTimes() are called before and after all calls to
// WriteStopTime(), allowing transactions/batching/whathaveyou. Same
// deal for shapes.
type FeedWriter interface {
	WriteStop(stop *model.Stop) error
	WriteRoute(route *model.Route) error
	WriteTrip(trip *model.Trip) error
	WriteCalendar(cal *model.Calendar) error
	WriteCalendarDate(caldate *model.CalendarDate) error
	BeginStopTimes() error
	WriteStopTime(stopTime *model.StopTime) error
	EndStopTimes() error
	BeginShapes() error
	WriteShapePoint(pt *model.ShapePoint) error
	EndShapes() error
	Close() error
}

// Read side of a single feed. All methods are safe for concurrent
// use: the data is immutable once the writer has closed.
//
// Lookups by ID return (nil, nil) when the record does not exist;
// collection queries return empty slices. Only store failures produce
// errors.
type FeedReader interface {
	Routes() ([]*model.Route, error)
	Trips() ([]*model.Trip, error)
	Stops() ([]*model.Stop, error)
	StopTimes() ([]*model.StopTime, error)
	Calendars() ([]*model.Calendar, error)
	CalendarDates() ([]*model.CalendarDate, error)

	RouteByID(routeID string) (*model.Route, error)
	TripByID(tripID string) (*model.Trip, error)
	StopByID(stopID string) (*model.Stop, error)

	// Routes of the given transport mode, ordered by short name.
	RoutesByMode(mode model.Mode) ([]*model.Route, error)

	// Distinct routes with at least one trip calling at the stop,
	// ordered by route ID.
	RoutesThroughStop(stopID string) ([]*model.Route, error)

	// Service IDs for all services active on the given date
	// ("20060102"): weekly pattern within validity range, plus
	// added exceptions, minus removed exceptions. Removal wins.
	ActiveServices(date string) ([]string, error)

	// Service IDs matching a day-type bucket. Workdays means all
	// five weekday flags set, weekends means Saturday or Sunday
	// set. Calendar exceptions are ignored in this mode.
	ServicesByDayType(dayType model.DayType) ([]string, error)

	// Trips on a route, optionally restricted to a service set.
	TripsByRoute(routeID string, serviceIDs []string) ([]*model.Trip, error)

	// Ordered stop-id sequence of a trip. Empty if the trip has
	// no stop_times.
	TripStopIDs(tripID string) ([]string, error)

	// Ordered stop-id sequences for a batch of trips.
	TripPatterns(tripIDs []string) (map[string][]string, error)

	// Stop times at a stop for the given trips, unordered.
	StopTimesAtStop(stopID string, tripIDs []string) ([]*model.StopTime, error)

	// All stop times of one trip, ordered by stop_sequence.
	StopTimesForTrip(tripID string) ([]*model.StopTime, error)

	// Stops of one trip joined with call times, ordered by
	// stop_sequence.
	TripStops(tripID string) ([]*model.TripCall, error)

	// Shape polyline, ordered by point sequence.
	ShapePoints(shapeID string) ([]*model.ShapePoint, error)

	// Calendar exceptions recorded for a service.
	CalendarDatesByService(serviceID string) ([]*model.CalendarDate, error)
}
