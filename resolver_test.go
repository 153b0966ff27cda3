package schedule

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baltictransit.dev/schedule/model"
	"baltictransit.dev/schedule/parse"
	"baltictransit.dev/schedule/storage"
)

func buildFeedZip(t testing.TB, files map[string][]string) []byte {
	if files["calendar.txt"] == nil && files["calendar_dates.txt"] == nil {
		files["calendar.txt"] = []string{"service_id"}
	}
	if files["routes.txt"] == nil {
		files["routes.txt"] = []string{"route_id"}
	}
	if files["trips.txt"] == nil {
		files["trips.txt"] = []string{"trip_id"}
	}
	if files["stops.txt"] == nil {
		files["stops.txt"] = []string{"stop_id"}
	}
	if files["stop_times.txt"] == nil {
		files["stop_times.txt"] = []string{"stop_id"}
	}

	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for filename, content := range files {
		f, err := w.Create(filename)
		require.NoError(t, err)
		_, err = f.Write([]byte(strings.Join(content, "\n")))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func resolverFromFiles(t *testing.T, backend string, files map[string][]string) *Resolver {
	var s storage.Storage
	var err error
	if backend == "memory" {
		s = storage.NewMemoryStorage()
	} else if backend == "sqlite" {
		s, err = storage.NewSQLiteStorage()
		require.NoError(t, err)
	} else {
		t.Fatalf("Unknown backend: %s", backend)
	}

	buf := buildFeedZip(t, files)

	feedWriter, err := s.GetWriter("test")
	require.NoError(t, err)

	metadata, err := parse.ParseFeed(feedWriter, buf)
	require.NoError(t, err)

	reader, err := s.GetReader("test")
	require.NoError(t, err)

	return NewResolver(reader, metadata)
}

// Calendar fixture: a weekday service, a weekend service, a
// Monday-only service with a short validity range, and exceptions
// around Monday January 6th 2025.
func calendarResolver(t *testing.T, backend string) *Resolver {
	return resolverFromFiles(t, backend, map[string][]string{
		"calendar.txt": {
			"service_id,start_date,end_date,monday,tuesday,wednesday,thursday,friday,saturday,sunday",
			"wk,20250101,20251231,1,1,1,1,1,0,0",
			"we,20250101,20251231,0,0,0,0,0,1,1",
			"mon,20250101,20250630,1,0,0,0,0,0,0",
			"sat,20250101,20251231,0,0,0,0,0,1,0",
		},
		"calendar_dates.txt": {
			"service_id,date,exception_type",
			"wk,20250106,2",
			"we,20250106,1",
			"xtra,20250106,1",
		},
	})
}

func testActiveServicesWeeklyPattern(t *testing.T, backend string) {
	r := calendarResolver(t, backend)

	// A regular Tuesday: only the weekday service runs.
	services, err := r.ActiveServices("2025-01-07")
	require.NoError(t, err)
	assert.Equal(t, []string{"wk"}, services)

	// A Saturday: both weekend-ish services.
	services, err = r.ActiveServices("2025-01-04")
	require.NoError(t, err)
	assert.Equal(t, []string{"sat", "we"}, services)

	// A Monday within mon's validity range.
	services, err = r.ActiveServices("2025-01-13")
	require.NoError(t, err)
	assert.Equal(t, []string{"mon", "wk"}, services)

	// A Monday after mon's end_date.
	services, err = r.ActiveServices("2025-07-07")
	require.NoError(t, err)
	assert.Equal(t, []string{"wk"}, services)

	// Outside every validity range: nothing runs, and that's not
	// an error.
	services, err = r.ActiveServices("2030-06-03")
	require.NoError(t, err)
	assert.Equal(t, []string{}, services)
}

func testActiveServicesExceptions(t *testing.T, backend string) {
	r := calendarResolver(t, backend)

	// Monday January 6th: wk is removed by exception, we and xtra
	// are added, mon runs per its weekly pattern.
	services, err := r.ActiveServices("2025-01-06")
	require.NoError(t, err)
	assert.Equal(t, []string{"mon", "we", "xtra"}, services)
}

func testActiveServicesInvalidDate(t *testing.T, backend string) {
	r := calendarResolver(t, backend)

	for _, bad := range []string{"", "20250107", "2025-13-01", "today", "2025-01-07T00:00:00"} {
		_, err := r.ActiveServices(bad)
		assert.ErrorIs(t, err, ErrInvalidInput, "date %q", bad)
	}
}

func testServicesByDayType(t *testing.T, backend string) {
	r := calendarResolver(t, backend)

	// Workdays requires all five weekday flags. mon runs Mondays
	// only and doesn't qualify.
	services, err := r.ActiveServicesByDayType(model.DayTypeWorkdays)
	require.NoError(t, err)
	assert.Equal(t, []string{"wk"}, services)

	// Weekends is satisfied by either flag. The wk removal on
	// January 6th plays no part here: day-type resolution never
	// consults exceptions.
	services, err = r.ActiveServicesByDayType(model.DayTypeWeekends)
	require.NoError(t, err)
	assert.Equal(t, []string{"sat", "we"}, services)
}

// Pattern fixture: one bus route with two distinct stop patterns, one
// trolleybus route sharing a stop with it.
func patternResolver(t *testing.T, backend string) *Resolver {
	return resolverFromFiles(t, backend, map[string][]string{
		"calendar.txt": {
			"service_id,start_date,end_date,monday,tuesday,wednesday,thursday,friday,saturday,sunday",
			"wk,20250101,20251231,1,1,1,1,1,0,0",
		},
		"routes.txt": {
			"route_id,route_short_name,route_long_name",
			"riga_bus_46,46,Imanta - Jugla",
			"riga_trol_17,17,Centrs - Ilguciems",
		},
		"stops.txt": {
			"stop_id,stop_name,stop_lat,stop_lon",
			"A,Abrenes iela,56.946,24.105",
			"B,Brivibas iela,56.957,24.117",
			"C,Centraltirgus,56.944,24.115",
			"D,Dzirnavu iela,56.952,24.121",
		},
		"trips.txt": {
			"trip_id,route_id,service_id,shape_id,trip_headsign",
			"t1,riga_bus_46,wk,sh1,Jugla",
			"t2,riga_bus_46,wk,sh1,Jugla",
			"t3,riga_bus_46,wk,,Imanta",
			"t4,riga_bus_46,wk,sh1,Depo",
			"t5,riga_trol_17,wk,,Ilguciems",
		},
		// t1, t2 and t4 serve A-B-C. t2's stop_sequence numbering
		// is sparse, t4 carries a different headsign; neither
		// matters for pattern identity. t3 serves A-C-D.
		"stop_times.txt": {
			"trip_id,stop_id,stop_sequence,arrival_time,departure_time",
			"t1,A,1,05:30:00,05:30:00",
			"t1,B,2,05:40:00,05:40:00",
			"t1,C,3,05:50:00,05:50:00",
			"t2,A,10,24:10:00,24:10:00",
			"t2,B,20,24:20:00,24:20:00",
			"t2,C,30,24:30:00,24:30:00",
			"t4,A,5,0:15:00,0:15:00",
			"t4,B,6,00:25:00,00:25:00",
			"t4,C,7,00:35:00,00:35:00",
			"t3,A,1,10:00:00,10:00:00",
			"t3,C,2,10:10:00,10:10:00",
			"t3,D,3,10:20:00,10:20:00",
			"t5,C,1,08:00:00,08:00:00",
			"t5,D,2,08:05:00,08:05:00",
		},
		"shapes.txt": {
			"shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence",
			"sh1,56.946,24.105,1",
			"sh1,56.957,24.117,2",
			"sh1,56.944,24.115,3",
		},
	})
}

func testMatchingTrips(t *testing.T, backend string) {
	r := patternResolver(t, backend)

	// t2's renumbered sequence and t4's headsign don't break
	// pattern equality. t3's different stop list does.
	trips, err := r.MatchingTrips("t1", []string{"wk"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2", "t4"}, trips)

	// The reference trip always matches itself.
	trips, err = r.MatchingTrips("t3", []string{"wk"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t3"}, trips)

	// Pattern equality is symmetric: any trip of the group as the
	// reference yields the same group.
	for _, ref := range []string{"t2", "t4"} {
		trips, err = r.MatchingTrips(ref, []string{"wk"})
		require.NoError(t, err)
		assert.Equal(t, []string{"t1", "t2", "t4"}, trips, "reference %s", ref)
	}

	// An empty service set means nothing runs, not "no filter".
	trips, err = r.MatchingTrips("t1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{}, trips)

	// A service set excluding the route's services yields just
	// nothing to match against.
	trips, err = r.MatchingTrips("t1", []string{"nope"})
	require.NoError(t, err)
	assert.Equal(t, []string{}, trips)

	_, err = r.MatchingTrips("t99", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testDeparturesOrdering(t *testing.T, backend string) {
	r := patternResolver(t, backend)

	// After-midnight departures come first, then the day in
	// ascending order.
	deps, err := r.Departures("A", []string{"t1", "t2", "t4"})
	require.NoError(t, err)
	require.Len(t, deps, 3)
	assert.Equal(t, "24:10:00", deps[0].DepartureTime)
	assert.Equal(t, "00:15:00", deps[1].DepartureTime)
	assert.Equal(t, "05:30:00", deps[2].DepartureTime)

	// Trips not calling at the stop contribute nothing.
	deps, err = r.Departures("D", []string{"t1", "t2", "t4"})
	require.NoError(t, err)
	assert.Equal(t, []model.Departure{}, deps)

	_, err = r.Departures("Z", []string{"t1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func testDeparturesDeterminism(t *testing.T, backend string) {
	// Two trips leaving a stop at the same minute, as paired
	// rush-hour duplicates do.
	r := resolverFromFiles(t, backend, map[string][]string{
		"calendar.txt": {
			"service_id,start_date,end_date,monday,tuesday,wednesday,thursday,friday,saturday,sunday",
			"wk,20250101,20251231,1,1,1,1,1,0,0",
		},
		"routes.txt": {
			"route_id,route_short_name,route_long_name",
			"riga_bus_46,46,Imanta - Jugla",
		},
		"stops.txt": {
			"stop_id,stop_name,stop_lat,stop_lon",
			"A,Abrenes iela,56.946,24.105",
			"B,Brivibas iela,56.957,24.117",
		},
		"trips.txt": {
			"trip_id,route_id,service_id",
			"t1,riga_bus_46,wk",
			"t2,riga_bus_46,wk",
		},
		"stop_times.txt": {
			"trip_id,stop_id,stop_sequence,arrival_time,departure_time",
			"t2,A,1,07:30:00,07:30:00",
			"t2,B,2,07:40:00,07:40:00",
			"t1,A,1,07:30:00,07:30:00",
			"t1,B,2,07:41:00,07:41:00",
		},
	})

	// Equal departure times fall back to trip ID order.
	first, err := r.Departures("A", []string{"t2", "t1"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "t1", first[0].TripID)
	assert.Equal(t, "t2", first[1].TripID)

	// Repeating the query, trip list order flipped, changes nothing.
	again, err := r.Departures("A", []string{"t1", "t2"})
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func testStopDepartures(t *testing.T, backend string) {
	r := patternResolver(t, backend)

	// Wednesday: wk is active. The route's first trip (t1) is the
	// reference, so t3's variant is filtered out.
	deps, err := r.StopDepartures("riga_bus_46", "A", "2025-01-08")
	require.NoError(t, err)
	require.Len(t, deps, 3)
	assert.Equal(t, "t2", deps[0].TripID)
	assert.Equal(t, "t4", deps[1].TripID)
	assert.Equal(t, "t1", deps[2].TripID)

	// Sunday: nothing runs.
	deps, err = r.StopDepartures("riga_bus_46", "A", "2025-01-05")
	require.NoError(t, err)
	assert.Equal(t, []model.Departure{}, deps)

	// Same result via the workdays bucket.
	deps, err = r.StopDeparturesByDayType("riga_bus_46", "A", model.DayTypeWorkdays)
	require.NoError(t, err)
	require.Len(t, deps, 3)
	assert.Equal(t, "24:10:00", deps[0].DepartureTime)

	_, err = r.StopDepartures("riga_bus_99", "A", "2025-01-08")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.StopDepartures("riga_bus_46", "Z", "2025-01-05")
	assert.ErrorIs(t, err, ErrNotFound)
}

func testTripVariants(t *testing.T, backend string) {
	r := patternResolver(t, backend)

	variants, err := r.TripVariants("riga_bus_46")
	require.NoError(t, err)
	require.Len(t, variants, 2)

	assert.Equal(t, "t1", variants[0].Trip.ID)
	assert.Equal(t, []string{"A", "B", "C"}, variants[0].StopIDs)
	assert.Equal(t, 3, variants[0].TripCount)

	assert.Equal(t, "t3", variants[1].Trip.ID)
	assert.Equal(t, []string{"A", "C", "D"}, variants[1].StopIDs)
	assert.Equal(t, 1, variants[1].TripCount)

	_, err = r.TripVariants("riga_bus_99")
	assert.ErrorIs(t, err, ErrNotFound)
}

func testTripTimeline(t *testing.T, backend string) {
	r := patternResolver(t, backend)

	calls, err := r.TripTimeline("t2")
	require.NoError(t, err)
	require.Len(t, calls, 3)
	assert.Equal(t, "Abrenes iela", calls[0].Stop.Name)
	assert.Equal(t, "24:10:00", calls[0].Departure)
	assert.Equal(t, "Brivibas iela", calls[1].Stop.Name)
	assert.Equal(t, "Centraltirgus", calls[2].Stop.Name)

	_, err = r.TripTimeline("t99")
	assert.ErrorIs(t, err, ErrNotFound)
}

func testTripShape(t *testing.T, backend string) {
	r := patternResolver(t, backend)

	points, err := r.TripShape("t1")
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, uint32(1), points[0].Sequence)
	assert.Equal(t, 56.946, points[0].Lat)

	// t3 has no shape_id.
	points, err = r.TripShape("t3")
	require.NoError(t, err)
	assert.Equal(t, []*model.ShapePoint{}, points)

	_, err = r.TripShape("t99")
	assert.ErrorIs(t, err, ErrNotFound)
}

func testRoutesByMode(t *testing.T, backend string) {
	r := patternResolver(t, backend)

	routes, err := r.RoutesByMode(model.ModeBus)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "riga_bus_46", routes[0].ID)

	// The trolleybus route ID contains "bus", but mode was
	// classified at load time.
	routes, err = r.RoutesByMode(model.ModeTrolleybus)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "riga_trol_17", routes[0].ID)

	routes, err = r.RoutesByMode(model.ModeTram)
	require.NoError(t, err)
	assert.Equal(t, []*model.Route{}, routes)
}

func testRoutesThroughStop(t *testing.T, backend string) {
	r := patternResolver(t, backend)

	routes, err := r.RoutesThroughStop("D")
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, "riga_bus_46", routes[0].ID)
	assert.Equal(t, "riga_trol_17", routes[1].ID)

	routes, err = r.RoutesThroughStop("B")
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "riga_bus_46", routes[0].ID)

	_, err = r.RoutesThroughStop("Z")
	assert.ErrorIs(t, err, ErrNotFound)
}

func testServiceExceptions(t *testing.T, backend string) {
	r := calendarResolver(t, backend)

	dates, err := r.ServiceExceptions("wk")
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, "20250106", dates[0].Date)
	assert.Equal(t, model.ExceptionRemoved, dates[0].ExceptionType)

	// Unknown service: no exceptions recorded, not an error.
	dates, err = r.ServiceExceptions("nope")
	require.NoError(t, err)
	assert.Equal(t, []*model.CalendarDate{}, dates)
}

func TestResolver(t *testing.T) {
	for _, test := range []struct {
		Name string
		Test func(t *testing.T, backend string)
	}{
		{"ActiveServicesWeeklyPattern", testActiveServicesWeeklyPattern},
		{"ActiveServicesExceptions", testActiveServicesExceptions},
		{"ActiveServicesInvalidDate", testActiveServicesInvalidDate},
		{"ServicesByDayType", testServicesByDayType},
		{"MatchingTrips", testMatchingTrips},
		{"DeparturesOrdering", testDeparturesOrdering},
		{"DeparturesDeterminism", testDeparturesDeterminism},
		{"StopDepartures", testStopDepartures},
		{"TripVariants", testTripVariants},
		{"TripTimeline", testTripTimeline},
		{"TripShape", testTripShape},
		{"RoutesByMode", testRoutesByMode},
		{"RoutesThroughStop", testRoutesThroughStop},
		{"ServiceExceptions", testServiceExceptions},
	} {
		t.Run(fmt.Sprintf("%s memory", test.Name), func(t *testing.T) {
			test.Test(t, "memory")
		})
		t.Run(fmt.Sprintf("%s SQLite", test.Name), func(t *testing.T) {
			test.Test(t, "sqlite")
		})
	}
}
