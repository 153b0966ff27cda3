package parse

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baltictransit.dev/schedule/model"
	"baltictransit.dev/schedule/storage"
)

func buildZip(t *testing.T, files map[string][]string) []byte {
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

func validFeed() map[string][]string {
	return map[string][]string{
		"routes.txt": {
			"route_id,route_short_name,route_long_name,route_color",
			"riga_bus_46,46,Imanta - Jugla,F4B223",
			"riga_trol_17,17,Centrs - Ilguciems,",
			"riga_tram_6,6,Jugla - Ausekla iela,",
		},
		"stops.txt": {
			"stop_id,stop_name,stop_lat,stop_lon",
			"s1,Abrenes iela,56.946,24.105",
			"s2,Brivibas iela,56.957,24.117",
		},
		"trips.txt": {
			"trip_id,route_id,service_id,shape_id,trip_headsign",
			"t1,riga_bus_46,wk,sh1,Jugla",
		},
		"stop_times.txt": {
			"trip_id,stop_id,stop_sequence,arrival_time,departure_time",
			"t1,s1,1,6:5:0,6:5:30",
			"t1,s2,2,25:10:00,25:10:00",
		},
		"calendar.txt": {
			"service_id,start_date,end_date,monday,tuesday,wednesday,thursday,friday,saturday,sunday",
			"wk,20250101,20251231,1,1,1,1,1,0,0",
		},
		"calendar_dates.txt": {
			"service_id,date,exception_type",
			"wk,20261224,2",
		},
		"shapes.txt": {
			"shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence",
			"sh1,56.946,24.105,1",
			"sh1,56.957,24.117,2",
		},
	}
}

func parseIntoMemory(t *testing.T, files map[string][]string) (*storage.FeedMetadata, storage.FeedReader, error) {
	s := storage.NewMemoryStorage()
	writer, err := s.GetWriter("test")
	require.NoError(t, err)

	metadata, err := ParseFeed(writer, buildZip(t, files))
	if err != nil {
		return nil, nil, err
	}

	reader, err := s.GetReader("test")
	require.NoError(t, err)

	return metadata, reader, nil
}

func TestParseFeed(t *testing.T) {
	metadata, reader, err := parseIntoMemory(t, validFeed())
	require.NoError(t, err)

	// Calendar range covers calendar.txt and calendar_dates.txt.
	assert.Equal(t, "20250101", metadata.CalendarStartDate)
	assert.Equal(t, "20261224", metadata.CalendarEndDate)

	// Mode is classified from the route ID at load time, with
	// trolleybus winning over the "bus" substring.
	routes, err := reader.Routes()
	require.NoError(t, err)
	modes := map[string]model.Mode{}
	for _, route := range routes {
		modes[route.ID] = route.Mode
	}
	assert.Equal(t, model.ModeBus, modes["riga_bus_46"])
	assert.Equal(t, model.ModeTrolleybus, modes["riga_trol_17"])
	assert.Equal(t, model.ModeTram, modes["riga_tram_6"])

	// Blank route_color gets the GTFS default.
	route, err := reader.RouteByID("riga_trol_17")
	require.NoError(t, err)
	assert.Equal(t, "FFFFFF", route.Color)

	// Stop times are normalized to padded form, overflow hours
	// preserved.
	stopTimes, err := reader.StopTimesForTrip("t1")
	require.NoError(t, err)
	require.Len(t, stopTimes, 2)
	assert.Equal(t, "06:05:00", stopTimes[0].Arrival)
	assert.Equal(t, "06:05:30", stopTimes[0].Departure)
	assert.Equal(t, "25:10:00", stopTimes[1].Arrival)

	points, err := reader.ShapePoints("sh1")
	require.NoError(t, err)
	assert.Len(t, points, 2)
}

func TestParseFeedWithoutShapes(t *testing.T) {
	files := validFeed()
	delete(files, "shapes.txt")
	files["trips.txt"] = []string{
		"trip_id,route_id,service_id,trip_headsign",
		"t1,riga_bus_46,wk,Jugla",
	}

	_, reader, err := parseIntoMemory(t, files)
	require.NoError(t, err)

	points, err := reader.ShapePoints("sh1")
	require.NoError(t, err)
	assert.Len(t, points, 0)
}

func TestParseFeedMissingFiles(t *testing.T) {
	for _, missing := range []string{"routes.txt", "stops.txt", "trips.txt", "stop_times.txt"} {
		files := validFeed()
		delete(files, missing)
		_, _, err := parseIntoMemory(t, files)
		assert.ErrorContains(t, err, missing)
	}

	// Feed with neither calendar file is rejected.
	files := validFeed()
	delete(files, "calendar.txt")
	delete(files, "calendar_dates.txt")
	_, _, err := parseIntoMemory(t, files)
	assert.ErrorContains(t, err, "calendar")
}

func TestParseFeedBadReferences(t *testing.T) {
	// Trip on unknown route
	files := validFeed()
	files["trips.txt"] = append(files["trips.txt"], "t2,riga_bus_99,wk,,X")
	_, _, err := parseIntoMemory(t, files)
	assert.ErrorContains(t, err, "riga_bus_99")

	// Trip on unknown service
	files = validFeed()
	files["trips.txt"] = append(files["trips.txt"], "t2,riga_bus_46,nope,,X")
	_, _, err = parseIntoMemory(t, files)
	assert.ErrorContains(t, err, "nope")

	// Stop time for unknown stop
	files = validFeed()
	files["stop_times.txt"] = append(files["stop_times.txt"], "t1,s9,3,07:00:00,07:00:00")
	_, _, err = parseIntoMemory(t, files)
	assert.ErrorContains(t, err, "s9")
}

func TestParseFeedDuplicateStopSequence(t *testing.T) {
	files := validFeed()
	files["stop_times.txt"] = append(files["stop_times.txt"], "t1,s1,2,07:00:00,07:00:00")
	_, _, err := parseIntoMemory(t, files)
	assert.ErrorContains(t, err, "duplicate stop_sequence")
}

func TestParseFeedBadStopTime(t *testing.T) {
	files := validFeed()
	files["stop_times.txt"] = []string{
		"trip_id,stop_id,stop_sequence,arrival_time,departure_time",
		"t1,s1,1,25:61:00,25:61:00",
	}
	_, _, err := parseIntoMemory(t, files)
	assert.ErrorContains(t, err, "invalid minute")
}

func TestParseFeedBadCalendarDate(t *testing.T) {
	files := validFeed()
	files["calendar_dates.txt"] = []string{
		"service_id,date,exception_type",
		"wk,20250106,3",
	}
	_, _, err := parseIntoMemory(t, files)
	assert.ErrorContains(t, err, "exception_type")

	files = validFeed()
	files["calendar_dates.txt"] = []string{
		"service_id,date,exception_type",
		"wk,20250106,1",
		"wk,20250106,2",
	}
	_, _, err = parseIntoMemory(t, files)
	assert.ErrorContains(t, err, "duplicate service/date")
}
