package schedule

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baltictransit.dev/schedule/storage"
)

func managerFixtureZip(t *testing.T) []byte {
	return buildFeedZip(t, map[string][]string{
		"calendar.txt": {
			"service_id,start_date,end_date,monday,tuesday,wednesday,thursday,friday,saturday,sunday",
			"daily,20200101,20991231,1,1,1,1,1,1,1",
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
			"t1,riga_bus_46,daily",
		},
		"stop_times.txt": {
			"trip_id,stop_id,stop_sequence,arrival_time,departure_time",
			"t1,A,1,05:30:00,05:30:00",
			"t1,B,2,05:40:00,05:40:00",
		},
	})
}

func TestManagerLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feed.zip")
	require.NoError(t, os.WriteFile(path, managerFixtureZip(t), 0644))

	m := NewManager(storage.NewMemoryStorage())

	resolver, err := m.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "20200101", resolver.Metadata.CalendarStartDate)
	assert.Equal(t, "20991231", resolver.Metadata.CalendarEndDate)
	assert.Equal(t, path, resolver.Metadata.URL)
	assert.NotEmpty(t, resolver.Metadata.Hash)

	services, err := resolver.ActiveServices("2025-01-07")
	require.NoError(t, err)
	assert.Equal(t, []string{"daily"}, services)

	// Loading again finds the stored copy by content hash.
	again, err := m.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, resolver.Metadata.Hash, again.Metadata.Hash)
}

func TestManagerResolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feed.zip")
	require.NoError(t, os.WriteFile(path, managerFixtureZip(t), 0644))

	m := NewManager(storage.NewMemoryStorage())

	// Nothing stored yet.
	_, err := m.Resolve(path, time.Now())
	assert.ErrorIs(t, err, ErrNoActiveFeed)

	_, err = m.Load(context.Background(), path)
	require.NoError(t, err)

	// Within the calendar range.
	resolver, err := m.Resolve(path, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, path, resolver.Metadata.URL)

	// Outside it.
	_, err = m.Resolve(path, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrNoActiveFeed)

	// Unknown URL.
	_, err = m.Resolve("http://example.com/unknown.zip", time.Now())
	assert.ErrorIs(t, err, ErrNoActiveFeed)
}
