package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTime(t *testing.T) {
	for in, want := range map[string]string{
		"05:30:00": "05:30:00",
		"6:5:0":    "06:05:00",
		"24:10:00": "24:10:00",
		"99:59:59": "99:59:59",
		" 7:00:00": "07:00:00",
	} {
		got, err := NormalizeTime(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{
		"",
		"05:30",
		"05:30:00:00",
		"100:00:00",
		"05:60:00",
		"05:30:60",
		"-1:30:00",
		"ab:cd:ef",
	} {
		_, err := NormalizeTime(bad)
		assert.Error(t, err, bad)
	}
}

func TestTimeOverflows(t *testing.T) {
	assert.False(t, TimeOverflows("00:15:00"))
	assert.False(t, TimeOverflows("23:59:59"))
	assert.True(t, TimeOverflows("24:00:00"))
	assert.True(t, TimeOverflows("25:10:00"))
}

func TestNormalizedSeconds(t *testing.T) {
	assert.Equal(t, 0, NormalizedSeconds("00:00:00"))
	assert.Equal(t, 5*3600+30*60, NormalizedSeconds("05:30:00"))

	// Overflow hours wrap onto the next day's clock.
	assert.Equal(t, 10*60, NormalizedSeconds("24:10:00"))
	assert.Equal(t, 3600+10*60, NormalizedSeconds("25:10:00"))
}

func TestStopTimeDurations(t *testing.T) {
	st := &StopTime{Arrival: "25:10:00", Departure: "25:12:30"}
	assert.Equal(t, "25h10m0s", st.ArrivalTime().String())
	assert.Equal(t, "25h12m30s", st.DepartureTime().String())
}
