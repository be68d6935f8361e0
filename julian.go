package helio

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

const (
	// J2000 is the Julian date of the J2000.0 reference epoch.
	J2000 = 2451545.0
	// UnixEpochJD is the Julian date of 1970-01-01T00:00:00Z.
	UnixEpochJD = 2440587.5
	// DaysPerCentury is the length of a Julian century.
	DaysPerCentury = 36525.0

	secondsPerDay = 86400.0

	// Validity interval of the JPL Table 1 elements.
	jd1800 = 2378496.5
	jd2050 = 2469807.5
)

// JulianDate returns the Julian date of the provided time as
// 2440587.5 + seconds since the Unix epoch / 86400.
func JulianDate(t time.Time) float64 {
	seconds := float64(t.Unix()) + float64(t.Nanosecond())/1e9
	return UnixEpochJD + seconds/secondsPerDay
}

// CenturiesSinceJ2000 returns T, the number of Julian centuries between J2000.0 and dt.
func CenturiesSinceJ2000(dt time.Time) float64 {
	return (JulianDate(dt) - J2000) / DaysPerCentury
}

// JDToTime returns the UTC time of a Julian date.
func JDToTime(jd float64) time.Time {
	return julian.JDToTime(jd).UTC()
}

// J2000Time returns J2000.0 as a time, i.e. 2000-01-01 12:00:00 UTC.
func J2000Time() time.Time {
	return time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
}

// EpochAt returns the time which is T Julian centuries after J2000.0.
func EpochAt(T float64) time.Time {
	days := T * DaysPerCentury
	whole := math.Trunc(days)
	frac := time.Duration((days - whole) * secondsPerDay * float64(time.Second))
	return J2000Time().AddDate(0, 0, int(whole)).Add(frac)
}

// withinTable1 returns whether the Julian date is in 1800 AD - 2050 AD.
func withinTable1(jd float64) bool {
	return jd >= jd1800 && jd <= jd2050
}
