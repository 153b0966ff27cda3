package schedule_test

// End-to-end checks through the public surface, using the testutil
// feed builders.

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baltictransit.dev/schedule/model"
	"baltictransit.dev/schedule/testutil"
)

func testEndToEndDepartures(t *testing.T, backend string) {
	r := testutil.BuildFeed(t, backend, map[string][]string{
		"calendar.txt": {
			"service_id,start_date,end_date,monday,tuesday,wednesday,thursday,friday,saturday,sunday",
			"wk,20250101,20251231,1,1,1,1,1,0,0",
			"we,20250101,20251231,0,0,0,0,0,1,1",
		},
		"calendar_dates.txt": {
			"service_id,date,exception_type",
			// Midsummer's eve 2025 falls on a Monday: weekday
			// services pause, the weekend schedule runs.
			"wk,20250623,2",
			"we,20250623,1",
		},
		"routes.txt": {
			"route_id,route_short_name,route_long_name",
			"riga_tram_6,6,Jugla - Ausekla iela",
		},
		"stops.txt": {
			"stop_id,stop_name,stop_lat,stop_lon",
			"A,Ausekla iela,56.958,24.096",
			"B,Nacionalais teatris,56.953,24.102",
		},
		"trips.txt": {
			"trip_id,route_id,service_id",
			"wk1,riga_tram_6,wk",
			"wk2,riga_tram_6,wk",
			"we1,riga_tram_6,we",
		},
		"stop_times.txt": {
			"trip_id,stop_id,stop_sequence,arrival_time,departure_time",
			"wk1,A,1,05:30:00,05:30:00",
			"wk1,B,2,05:38:00,05:38:00",
			"wk2,A,1,24:05:00,24:05:00",
			"wk2,B,2,24:13:00,24:13:00",
			"we1,A,1,07:00:00,07:00:00",
			"we1,B,2,07:08:00,07:08:00",
		},
	})

	// A regular Monday: the weekday trips run, overflow departure
	// first.
	deps, err := r.StopDepartures("riga_tram_6", "A", "2025-06-16")
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, "24:05:00", deps[0].DepartureTime)
	assert.Equal(t, "05:30:00", deps[1].DepartureTime)

	// Midsummer's eve: the exception swaps in the weekend trip.
	deps, err = r.StopDepartures("riga_tram_6", "A", "2025-06-23")
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "we1", deps[0].TripID)

	// The day-type buckets see the weekly patterns only.
	deps, err = r.StopDeparturesByDayType("riga_tram_6", "A", model.DayTypeWeekends)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "07:00:00", deps[0].DepartureTime)
}

func TestSchedule(t *testing.T) {
	for _, backend := range []string{"memory", "sqlite"} {
		t.Run(fmt.Sprintf("EndToEndDepartures %s", backend), func(t *testing.T) {
			testEndToEndDepartures(t, backend)
		})
	}
}
