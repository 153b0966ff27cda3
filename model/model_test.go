package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModeFromRouteID(t *testing.T) {
	// Trolleybus IDs contain "bus" as well; "trol" must win.
	assert.Equal(t, ModeTrolleybus, ModeFromRouteID("riga_trol_17"))
	assert.Equal(t, ModeBus, ModeFromRouteID("riga_bus_46"))
	assert.Equal(t, ModeTram, ModeFromRouteID("riga_tram_6"))
	assert.Equal(t, ModeTrain, ModeFromRouteID("lv_train_aizkraukle"))
	assert.Equal(t, ModeUnknown, ModeFromRouteID("ferry_1"))

	assert.Equal(t, ModeBus, ModeFromRouteID("RIGA_BUS_46"))
}

func TestParseMode(t *testing.T) {
	for s, want := range map[string]Mode{
		"bus":        ModeBus,
		"trolleybus": ModeTrolleybus,
		"trol":       ModeTrolleybus,
		"tram":       ModeTram,
		"train":      ModeTrain,
		"Tram":       ModeTram,
	} {
		mode, ok := ParseMode(s)
		assert.True(t, ok, s)
		assert.Equal(t, want, mode, s)
	}

	_, ok := ParseMode("metro")
	assert.False(t, ok)
}

func TestParseDayType(t *testing.T) {
	dayType, ok := ParseDayType("workdays")
	assert.True(t, ok)
	assert.Equal(t, DayTypeWorkdays, dayType)

	dayType, ok = ParseDayType("weekends")
	assert.True(t, ok)
	assert.Equal(t, DayTypeWeekends, dayType)

	_, ok = ParseDayType("holidays")
	assert.False(t, ok)
}
