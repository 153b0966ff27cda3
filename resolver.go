package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"baltictransit.dev/schedule/model"
	"baltictransit.dev/schedule/storage"
)

// Resolver answers schedule questions against a single loaded feed.
//
// Dates are accepted in ISO form ("2006-01-02"). Times returned in
// Departure records are the literal schedule strings, including the
// GTFS overflow hours used for after-midnight trips.
type Resolver struct {
	Metadata *storage.FeedMetadata
	Reader   storage.FeedReader
}

func NewResolver(reader storage.FeedReader, metadata *storage.FeedMetadata) *Resolver {
	return &Resolver{
		Metadata: metadata,
		Reader:   reader,
	}
}

// Translates an ISO date into the compact form used in storage.
func storageDate(date string) (string, error) {
	parsed, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return "", fmt.Errorf("%w: bad date %q", ErrInvalidInput, date)
	}
	return parsed.Format("20060102"), nil
}

// ActiveServices resolves the set of service IDs running on a date:
// every weekly pattern matching the date's weekday and covering the
// date, plus services added by exception, minus services removed by
// exception. A removal beats an addition for the same service and
// date.
func (r *Resolver) ActiveServices(date string) ([]string, error) {
	d, err := storageDate(date)
	if err != nil {
		return nil, err
	}

	services, err := r.Reader.ActiveServices(d)
	if err != nil {
		return nil, fmt.Errorf("resolving services for %s: %w", date, err)
	}

	sort.Strings(services)

	return services, nil
}

// ActiveServicesByDayType resolves services by schedule bucket instead
// of by date. Workdays means the service runs every weekday, weekends
// means it runs Saturday or Sunday. Calendar exceptions do not apply
// here: without a concrete date there is nothing for them to override.
func (r *Resolver) ActiveServicesByDayType(dayType model.DayType) ([]string, error) {
	services, err := r.Reader.ServicesByDayType(dayType)
	if err != nil {
		return nil, fmt.Errorf("resolving %s services: %w", dayType, err)
	}

	sort.Strings(services)

	return services, nil
}

// patternKey collapses an ordered stop sequence into a comparable
// key. Raw stop_sequence numbers play no part: two trips with stops
// numbered 1,2,3 and 10,20,30 over the same stops are the same
// pattern.
func patternKey(stopIDs []string) string {
	return strings.Join(stopIDs, "\x1e")
}

// MatchingTrips finds all trips that serve the exact same ordered stop
// sequence as the reference trip, restricted to the reference trip's
// route and the given services. The reference trip itself is included
// when its service is. Results are ordered by trip ID.
//
// The service set is the output of ActiveServices: empty means nothing
// runs, so nothing matches.
//
// A reference trip without stop times has the empty pattern and only
// matches other empty trips.
func (r *Resolver) MatchingTrips(refTripID string, serviceIDs []string) ([]string, error) {
	refTrip, err := r.Reader.TripByID(refTripID)
	if err != nil {
		return nil, fmt.Errorf("reading trip %s: %w", refTripID, err)
	}
	if refTrip == nil {
		return nil, fmt.Errorf("%w: trip %s", ErrNotFound, refTripID)
	}

	if len(serviceIDs) == 0 {
		return []string{}, nil
	}

	trips, err := r.Reader.TripsByRoute(refTrip.RouteID, serviceIDs)
	if err != nil {
		return nil, fmt.Errorf("reading trips on route %s: %w", refTrip.RouteID, err)
	}

	tripIDs := make([]string, 0, len(trips))
	for _, trip := range trips {
		tripIDs = append(tripIDs, trip.ID)
	}

	patterns, err := r.Reader.TripPatterns(append(tripIDs, refTripID))
	if err != nil {
		return nil, fmt.Errorf("reading trip patterns: %w", err)
	}

	refKey := patternKey(patterns[refTripID])

	matching := []string{}
	for _, tripID := range tripIDs {
		if patternKey(patterns[tripID]) == refKey {
			matching = append(matching, tripID)
		}
	}

	sort.Strings(matching)

	return matching, nil
}

// Departures projects the given trips onto one stop. Each trip calling
// at the stop contributes one departure per call. The ordering is the
// one printed on pole timetables: after-midnight entries (hour 24+)
// come first, ordered by their wrapped clock time, followed by the
// rest of the day in ascending order. Ties are broken by trip ID so
// repeated queries give byte-identical output.
func (r *Resolver) Departures(stopID string, tripIDs []string) ([]model.Departure, error) {
	stop, err := r.Reader.StopByID(stopID)
	if err != nil {
		return nil, fmt.Errorf("reading stop %s: %w", stopID, err)
	}
	if stop == nil {
		return nil, fmt.Errorf("%w: stop %s", ErrNotFound, stopID)
	}

	stopTimes, err := r.Reader.StopTimesAtStop(stopID, tripIDs)
	if err != nil {
		return nil, fmt.Errorf("reading stop times at %s: %w", stopID, err)
	}

	departures := make([]model.Departure, 0, len(stopTimes))
	for _, st := range stopTimes {
		departures = append(departures, model.Departure{
			TripID:        st.TripID,
			DepartureTime: st.Departure,
		})
	}

	sort.SliceStable(departures, func(i, j int) bool {
		a, b := departures[i], departures[j]
		ao, bo := model.TimeOverflows(a.DepartureTime), model.TimeOverflows(b.DepartureTime)
		if ao != bo {
			return ao
		}
		as, bs := model.NormalizedSeconds(a.DepartureTime), model.NormalizedSeconds(b.DepartureTime)
		if as != bs {
			return as < bs
		}
		return a.TripID < b.TripID
	})

	return departures, nil
}

// StopDepartures is the full pipeline for a date: resolve the active
// services, take the route's first trip in that service set as the
// reference, collect all trips with its stop pattern, and project them
// onto the stop.
func (r *Resolver) StopDepartures(routeID, stopID, date string) ([]model.Departure, error) {
	serviceIDs, err := r.ActiveServices(date)
	if err != nil {
		return nil, err
	}
	return r.stopDepartures(routeID, stopID, serviceIDs)
}

// StopDeparturesByDayType is StopDepartures for a schedule bucket
// rather than a date.
func (r *Resolver) StopDeparturesByDayType(routeID, stopID string, dayType model.DayType) ([]model.Departure, error) {
	serviceIDs, err := r.ActiveServicesByDayType(dayType)
	if err != nil {
		return nil, err
	}
	return r.stopDepartures(routeID, stopID, serviceIDs)
}

func (r *Resolver) stopDepartures(routeID, stopID string, serviceIDs []string) ([]model.Departure, error) {
	route, err := r.Reader.RouteByID(routeID)
	if err != nil {
		return nil, fmt.Errorf("reading route %s: %w", routeID, err)
	}
	if route == nil {
		return nil, fmt.Errorf("%w: route %s", ErrNotFound, routeID)
	}

	if len(serviceIDs) == 0 {
		// No service on this day. Verify the stop so a typo'd
		// stop ID doesn't masquerade as a day off.
		stop, err := r.Reader.StopByID(stopID)
		if err != nil {
			return nil, fmt.Errorf("reading stop %s: %w", stopID, err)
		}
		if stop == nil {
			return nil, fmt.Errorf("%w: stop %s", ErrNotFound, stopID)
		}
		return []model.Departure{}, nil
	}

	trips, err := r.Reader.TripsByRoute(routeID, serviceIDs)
	if err != nil {
		return nil, fmt.Errorf("reading trips on route %s: %w", routeID, err)
	}
	if len(trips) == 0 {
		stop, err := r.Reader.StopByID(stopID)
		if err != nil {
			return nil, fmt.Errorf("reading stop %s: %w", stopID, err)
		}
		if stop == nil {
			return nil, fmt.Errorf("%w: stop %s", ErrNotFound, stopID)
		}
		return []model.Departure{}, nil
	}

	// TripsByRoute orders by trip ID, so trips[0] makes the
	// reference selection deterministic.
	matching, err := r.MatchingTrips(trips[0].ID, serviceIDs)
	if err != nil {
		return nil, err
	}

	return r.Departures(stopID, matching)
}

// TripVariant is one distinct stop pattern on a route, represented by
// its first trip (by ID).
type TripVariant struct {
	Trip      *model.Trip
	StopIDs   []string
	TripCount int
}

// TripVariants groups a route's trips by stop pattern. Variants are
// ordered by representative trip ID. Routes typically yield a handful:
// one per direction, plus short-workings and depot runs.
func (r *Resolver) TripVariants(routeID string) ([]*TripVariant, error) {
	route, err := r.Reader.RouteByID(routeID)
	if err != nil {
		return nil, fmt.Errorf("reading route %s: %w", routeID, err)
	}
	if route == nil {
		return nil, fmt.Errorf("%w: route %s", ErrNotFound, routeID)
	}

	trips, err := r.Reader.TripsByRoute(routeID, nil)
	if err != nil {
		return nil, fmt.Errorf("reading trips on route %s: %w", routeID, err)
	}

	tripIDs := make([]string, 0, len(trips))
	tripByID := map[string]*model.Trip{}
	for _, trip := range trips {
		tripIDs = append(tripIDs, trip.ID)
		tripByID[trip.ID] = trip
	}

	patterns, err := r.Reader.TripPatterns(tripIDs)
	if err != nil {
		return nil, fmt.Errorf("reading trip patterns: %w", err)
	}

	variantByKey := map[string]*TripVariant{}
	for _, tripID := range tripIDs {
		key := patternKey(patterns[tripID])
		variant, found := variantByKey[key]
		if !found {
			variantByKey[key] = &TripVariant{
				Trip:      tripByID[tripID],
				StopIDs:   patterns[tripID],
				TripCount: 1,
			}
			continue
		}
		variant.TripCount++
		if tripID < variant.Trip.ID {
			variant.Trip = tripByID[tripID]
		}
	}

	variants := make([]*TripVariant, 0, len(variantByKey))
	for _, variant := range variantByKey {
		variants = append(variants, variant)
	}

	sort.Slice(variants, func(i, j int) bool {
		return variants[i].Trip.ID < variants[j].Trip.ID
	})

	return variants, nil
}

// TripTimeline returns the full call sequence of one trip: stops with
// arrival and departure times, in travel order.
func (r *Resolver) TripTimeline(tripID string) ([]*model.TripCall, error) {
	trip, err := r.Reader.TripByID(tripID)
	if err != nil {
		return nil, fmt.Errorf("reading trip %s: %w", tripID, err)
	}
	if trip == nil {
		return nil, fmt.Errorf("%w: trip %s", ErrNotFound, tripID)
	}

	calls, err := r.Reader.TripStops(tripID)
	if err != nil {
		return nil, fmt.Errorf("reading stops for trip %s: %w", tripID, err)
	}

	return calls, nil
}

// TripShape returns the trip's geometry, if the feed carries one.
// Trips without a shape yield an empty slice.
func (r *Resolver) TripShape(tripID string) ([]*model.ShapePoint, error) {
	trip, err := r.Reader.TripByID(tripID)
	if err != nil {
		return nil, fmt.Errorf("reading trip %s: %w", tripID, err)
	}
	if trip == nil {
		return nil, fmt.Errorf("%w: trip %s", ErrNotFound, tripID)
	}
	if trip.ShapeID == "" {
		return []*model.ShapePoint{}, nil
	}

	points, err := r.Reader.ShapePoints(trip.ShapeID)
	if err != nil {
		return nil, fmt.Errorf("reading shape %s: %w", trip.ShapeID, err)
	}

	return points, nil
}

// RoutesByMode lists routes of one transport mode, ordered by short
// name.
func (r *Resolver) RoutesByMode(mode model.Mode) ([]*model.Route, error) {
	routes, err := r.Reader.RoutesByMode(mode)
	if err != nil {
		return nil, fmt.Errorf("reading %s routes: %w", mode, err)
	}
	return routes, nil
}

// RoutesThroughStop lists the routes with at least one trip calling at
// the stop.
func (r *Resolver) RoutesThroughStop(stopID string) ([]*model.Route, error) {
	stop, err := r.Reader.StopByID(stopID)
	if err != nil {
		return nil, fmt.Errorf("reading stop %s: %w", stopID, err)
	}
	if stop == nil {
		return nil, fmt.Errorf("%w: stop %s", ErrNotFound, stopID)
	}

	routes, err := r.Reader.RoutesThroughStop(stopID)
	if err != nil {
		return nil, fmt.Errorf("reading routes through %s: %w", stopID, err)
	}

	return routes, nil
}

// ServiceExceptions lists the calendar overrides recorded for one
// service, in date order.
func (r *Resolver) ServiceExceptions(serviceID string) ([]*model.CalendarDate, error) {
	dates, err := r.Reader.CalendarDatesByService(serviceID)
	if err != nil {
		return nil, fmt.Errorf("reading exceptions for %s: %w", serviceID, err)
	}
	return dates, nil
}
