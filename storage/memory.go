package storage

import (
	"fmt"
	"sort"
	"time"

	"baltictransit.dev/schedule/model"
)

// MemoryStorage is a simple in-memory implementation of Storage. It
// does everything with maps and linear scans, which is plenty for
// tests and small feeds.
type MemoryStorage struct {
	feeds    map[string]*MemoryFeed
	metadata []*FeedMetadata
}

type MemoryFeed struct {
	Stops         map[string]*model.Stop
	Routes        map[string]*model.Route
	Trips         map[string]*model.Trip
	StopTimes     []*model.StopTime
	Calendar      map[string]*model.Calendar
	CalendarDates map[string][]*model.CalendarDate
	Shapes        map[string][]*model.ShapePoint
}

type MemoryFeedWriter struct {
	feed *MemoryFeed
}

type MemoryFeedReader struct {
	feed *MemoryFeed
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		feeds: map[string]*MemoryFeed{},
	}
}

func (s *MemoryStorage) ListFeeds(filter ListFeedsFilter) ([]*FeedMetadata, error) {
	feeds := []*FeedMetadata{}
	for _, feed := range s.metadata {
		if filter.URL != "" && feed.URL != filter.URL {
			continue
		}
		if filter.Hash != "" && feed.Hash != filter.Hash {
			continue
		}
		feeds = append(feeds, feed)
	}

	sort.Slice(feeds, func(i, j int) bool {
		return feeds[i].RetrievedAt.After(feeds[j].RetrievedAt)
	})

	return feeds, nil
}

func (s *MemoryStorage) WriteFeedMetadata(metadata *FeedMetadata) error {
	for i, existing := range s.metadata {
		if existing.URL == metadata.URL && existing.Hash == metadata.Hash {
			s.metadata[i] = metadata
			return nil
		}
	}
	s.metadata = append(s.metadata, metadata)
	return nil
}

func (s *MemoryStorage) DeleteFeedMetadata(url string, hash string) error {
	for i, existing := range s.metadata {
		if existing.URL == url && existing.Hash == hash {
			s.metadata = append(s.metadata[:i], s.metadata[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *MemoryStorage) GetReader(feedID string) (FeedReader, error) {
	feed, found := s.feeds[feedID]
	if !found {
		return nil, fmt.Errorf("feed %s does not exist", feedID)
	}
	return &MemoryFeedReader{feed: feed}, nil
}

func (s *MemoryStorage) GetWriter(feedID string) (FeedWriter, error) {
	feed := &MemoryFeed{
		Stops:         map[string]*model.Stop{},
		Routes:        map[string]*model.Route{},
		Trips:         map[string]*model.Trip{},
		Calendar:      map[string]*model.Calendar{},
		CalendarDates: map[string][]*model.CalendarDate{},
		Shapes:        map[string][]*model.ShapePoint{},
	}
	s.feeds[feedID] = feed
	return &MemoryFeedWriter{feed: feed}, nil
}

func (w *MemoryFeedWriter) WriteStop(stop *model.Stop) error {
	w.feed.Stops[stop.ID] = stop
	return nil
}

func (w *MemoryFeedWriter) WriteRoute(route *model.Route) error {
	w.feed.Routes[route.ID] = route
	return nil
}

func (w *MemoryFeedWriter) WriteTrip(trip *model.Trip) error {
	w.feed.Trips[trip.ID] = trip
	return nil
}

func (w *MemoryFeedWriter) WriteCalendar(cal *model.Calendar) error {
	w.feed.Calendar[cal.ServiceID] = cal
	return nil
}

func (w *MemoryFeedWriter) WriteCalendarDate(cd *model.CalendarDate) error {
	w.feed.CalendarDates[cd.ServiceID] = append(w.feed.CalendarDates[cd.ServiceID], cd)
	return nil
}

func (w *MemoryFeedWriter) BeginStopTimes() error {
	return nil
}

func (w *MemoryFeedWriter) WriteStopTime(stopTime *model.StopTime) error {
	w.feed.StopTimes = append(w.feed.StopTimes, stopTime)
	return nil
}

func (w *MemoryFeedWriter) EndStopTimes() error {
	return nil
}

func (w *MemoryFeedWriter) BeginShapes() error {
	return nil
}

func (w *MemoryFeedWriter) WriteShapePoint(pt *model.ShapePoint) error {
	w.feed.Shapes[pt.ShapeID] = append(w.feed.Shapes[pt.ShapeID], pt)
	return nil
}

func (w *MemoryFeedWriter) EndShapes() error {
	return nil
}

func (w *MemoryFeedWriter) Close() error {
	// sort stop_times by trip and sequence so readers can assume
	// order
	sort.Slice(w.feed.StopTimes, func(i, j int) bool {
		a, b := w.feed.StopTimes[i], w.feed.StopTimes[j]
		if a.TripID != b.TripID {
			return a.TripID < b.TripID
		}
		return a.StopSequence < b.StopSequence
	})

	for _, points := range w.feed.Shapes {
		sort.Slice(points, func(i, j int) bool {
			return points[i].Sequence < points[j].Sequence
		})
	}

	return nil
}

func (r *MemoryFeedReader) ActiveServices(date string) ([]string, error) {
	parsedDate, err := time.Parse("20060102", date)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %s", date)
	}

	active := map[string]bool{}
	for serviceID, cal := range r.feed.Calendar {
		if cal.Weekday&(1<<parsedDate.Weekday()) == 0 {
			continue
		}
		if cal.StartDate > date || cal.EndDate < date {
			continue
		}
		active[serviceID] = true
	}

	// Added exceptions extend the weekly pattern, removals override
	// everything.
	for serviceID, dates := range r.feed.CalendarDates {
		for _, cd := range dates {
			if cd.Date == date && cd.ExceptionType == model.ExceptionAdded {
				active[serviceID] = true
			}
		}
	}
	for serviceID, dates := range r.feed.CalendarDates {
		for _, cd := range dates {
			if cd.Date == date && cd.ExceptionType == model.ExceptionRemoved {
				delete(active, serviceID)
			}
		}
	}

	services := []string{}
	for serviceID := range active {
		services = append(services, serviceID)
	}

	return services, nil
}

func (r *MemoryFeedReader) ServicesByDayType(dayType model.DayType) ([]string, error) {
	const workdayMask = 1<<time.Monday | 1<<time.Tuesday | 1<<time.Wednesday | 1<<time.Thursday | 1<<time.Friday
	const weekendMask = 1<<time.Saturday | 1<<time.Sunday

	services := []string{}
	for serviceID, cal := range r.feed.Calendar {
		if dayType == model.DayTypeWeekends {
			if cal.Weekday&weekendMask != 0 {
				services = append(services, serviceID)
			}
		} else {
			if cal.Weekday&workdayMask == workdayMask {
				services = append(services, serviceID)
			}
		}
	}

	return services, nil
}

func (r *MemoryFeedReader) Routes() ([]*model.Route, error) {
	routes := []*model.Route{}
	for _, route := range r.feed.Routes {
		routes = append(routes, route)
	}
	return routes, nil
}

func (r *MemoryFeedReader) RoutesByMode(mode model.Mode) ([]*model.Route, error) {
	routes := []*model.Route{}
	for _, route := range r.feed.Routes {
		if route.Mode == mode {
			routes = append(routes, route)
		}
	}

	sort.Slice(routes, func(i, j int) bool {
		return routes[i].ShortName < routes[j].ShortName
	})

	return routes, nil
}

func (r *MemoryFeedReader) RoutesThroughStop(stopID string) ([]*model.Route, error) {
	tripsAtStop := map[string]bool{}
	for _, st := range r.feed.StopTimes {
		if st.StopID == stopID {
			tripsAtStop[st.TripID] = true
		}
	}

	routeIDs := map[string]bool{}
	for tripID := range tripsAtStop {
		trip, found := r.feed.Trips[tripID]
		if found {
			routeIDs[trip.RouteID] = true
		}
	}

	routes := []*model.Route{}
	for routeID := range routeIDs {
		route, found := r.feed.Routes[routeID]
		if found {
			routes = append(routes, route)
		}
	}

	sort.Slice(routes, func(i, j int) bool {
		return routes[i].ID < routes[j].ID
	})

	return routes, nil
}

func (r *MemoryFeedReader) RouteByID(routeID string) (*model.Route, error) {
	return r.feed.Routes[routeID], nil
}

func (r *MemoryFeedReader) TripByID(tripID string) (*model.Trip, error) {
	return r.feed.Trips[tripID], nil
}

func (r *MemoryFeedReader) StopByID(stopID string) (*model.Stop, error) {
	return r.feed.Stops[stopID], nil
}

func (r *MemoryFeedReader) Stops() ([]*model.Stop, error) {
	stops := []*model.Stop{}
	for _, stop := range r.feed.Stops {
		stops = append(stops, stop)
	}
	return stops, nil
}

func (r *MemoryFeedReader) Trips() ([]*model.Trip, error) {
	trips := []*model.Trip{}
	for _, trip := range r.feed.Trips {
		trips = append(trips, trip)
	}
	return trips, nil
}

func (r *MemoryFeedReader) TripsByRoute(routeID string, serviceIDs []string) ([]*model.Trip, error) {
	serviceSet := map[string]bool{}
	for _, serviceID := range serviceIDs {
		serviceSet[serviceID] = true
	}

	trips := []*model.Trip{}
	for _, trip := range r.feed.Trips {
		if trip.RouteID != routeID {
			continue
		}
		if len(serviceIDs) > 0 && !serviceSet[trip.ServiceID] {
			continue
		}
		trips = append(trips, trip)
	}

	sort.Slice(trips, func(i, j int) bool {
		return trips[i].ID < trips[j].ID
	})

	return trips, nil
}

func (r *MemoryFeedReader) TripStopIDs(tripID string) ([]string, error) {
	stopIDs := []string{}
	for _, st := range r.feed.StopTimes {
		if st.TripID == tripID {
			stopIDs = append(stopIDs, st.StopID)
		}
	}
	return stopIDs, nil
}

func (r *MemoryFeedReader) TripPatterns(tripIDs []string) (map[string][]string, error) {
	wanted := map[string]bool{}
	for _, tripID := range tripIDs {
		wanted[tripID] = true
	}

	patterns := map[string][]string{}
	for _, st := range r.feed.StopTimes {
		if wanted[st.TripID] {
			patterns[st.TripID] = append(patterns[st.TripID], st.StopID)
		}
	}

	return patterns, nil
}

func (r *MemoryFeedReader) StopTimesAtStop(stopID string, tripIDs []string) ([]*model.StopTime, error) {
	wanted := map[string]bool{}
	for _, tripID := range tripIDs {
		wanted[tripID] = true
	}

	stopTimes := []*model.StopTime{}
	for _, st := range r.feed.StopTimes {
		if st.StopID == stopID && wanted[st.TripID] {
			stopTimes = append(stopTimes, st)
		}
	}

	return stopTimes, nil
}

func (r *MemoryFeedReader) StopTimesForTrip(tripID string) ([]*model.StopTime, error) {
	stopTimes := []*model.StopTime{}
	for _, st := range r.feed.StopTimes {
		if st.TripID == tripID {
			stopTimes = append(stopTimes, st)
		}
	}
	return stopTimes, nil
}

func (r *MemoryFeedReader) StopTimes() ([]*model.StopTime, error) {
	return r.feed.StopTimes, nil
}

func (r *MemoryFeedReader) TripStops(tripID string) ([]*model.TripCall, error) {
	calls := []*model.TripCall{}
	for _, st := range r.feed.StopTimes {
		if st.TripID != tripID {
			continue
		}
		stop, found := r.feed.Stops[st.StopID]
		if !found {
			return nil, fmt.Errorf("stop %s not found for trip %s", st.StopID, tripID)
		}
		calls = append(calls, &model.TripCall{
			Stop:         *stop,
			Arrival:      st.Arrival,
			Departure:    st.Departure,
			StopSequence: st.StopSequence,
		})
	}
	return calls, nil
}

func (r *MemoryFeedReader) ShapePoints(shapeID string) ([]*model.ShapePoint, error) {
	points := r.feed.Shapes[shapeID]
	if points == nil {
		return []*model.ShapePoint{}, nil
	}
	return points, nil
}

func (r *MemoryFeedReader) Calendars() ([]*model.Calendar, error) {
	calendars := []*model.Calendar{}
	for _, cal := range r.feed.Calendar {
		calendars = append(calendars, cal)
	}
	return calendars, nil
}

func (r *MemoryFeedReader) CalendarDates() ([]*model.CalendarDate, error) {
	calendarDates := []*model.CalendarDate{}
	for _, dates := range r.feed.CalendarDates {
		calendarDates = append(calendarDates, dates...)
	}
	return calendarDates, nil
}

func (r *MemoryFeedReader) CalendarDatesByService(serviceID string) ([]*model.CalendarDate, error) {
	dates := []*model.CalendarDate{}
	dates = append(dates, r.feed.CalendarDates[serviceID]...)

	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Date < dates[j].Date
	})

	return dates, nil
}
