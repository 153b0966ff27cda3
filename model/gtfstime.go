package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GTFS time-of-day handling. Times are "HH:MM:SS" strings where the
// hour runs past 23 for trips that continue into the next service
// day ("25:10:00" is 01:10 the following morning, operationally still
// part of the previous day).

// NormalizeTime validates a GTFS time-of-day string and returns it
// zero-padded. Feeds are sloppy about padding ("6:10:0"), but the
// canonical form must compare correctly as a plain string.
func NormalizeTime(s string) (string, error) {
	split := strings.Split(s, ":")
	if len(split) != 3 {
		return "", fmt.Errorf("found %d parts in %q", len(split), s)
	}

	hms := [3]int{}
	for i, str := range split {
		j, err := strconv.Atoi(strings.TrimSpace(str))
		if err != nil {
			return "", fmt.Errorf("non-integer in %q pos %d", s, i)
		}
		hms[i] = j
	}

	if hms[0] < 0 || hms[0] > 99 {
		return "", fmt.Errorf("invalid hour in %q", s)
	}
	if hms[1] < 0 || hms[1] > 59 {
		return "", fmt.Errorf("invalid minute in %q", s)
	}
	if hms[2] < 0 || hms[2] > 59 {
		return "", fmt.Errorf("invalid second in %q", s)
	}

	return fmt.Sprintf("%02d:%02d:%02d", hms[0], hms[1], hms[2]), nil
}

// TimeOverflows reports whether a canonical time falls past midnight
// (hour component >= 24).
func TimeOverflows(s string) bool {
	h, _ := strconv.Atoi(s[0:2])
	return h >= 24
}

// NormalizedSeconds is the same-day second-of-day of a canonical
// time, with overflow hours wrapped (hour mod 24). Used for ordering,
// never for display.
func NormalizedSeconds(s string) int {
	h, _ := strconv.Atoi(s[0:2])
	m, _ := strconv.Atoi(s[3:5])
	sec, _ := strconv.Atoi(s[6:8])
	return (h%24)*3600 + m*60 + sec
}

func (st *StopTime) ArrivalTime() time.Duration {
	return timeDuration(st.Arrival)
}

func (st *StopTime) DepartureTime() time.Duration {
	return timeDuration(st.Departure)
}

func timeDuration(s string) time.Duration {
	h, _ := strconv.Atoi(s[0:2])
	m, _ := strconv.Atoi(s[3:5])
	sec, _ := strconv.Atoi(s[6:8])
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
}
