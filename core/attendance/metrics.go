package attendance

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/staffroom/core"
)

type (
	Status string

	// WorkHoursPolicy decides how a check-out earlier than the check-in is read.
	WorkHoursPolicy string
)

const (
	StatusPresent  Status = "Present"
	StatusAbsent   Status = "Absent"
	StatusLate     Status = "Late"
	StatusVeryLate Status = "Very Late"
	StatusHalfDay  Status = "Half Day"
	StatusUnknown  Status = "Unknown"

	// PolicyOvernight assumes the shift crossed midnight. Rounded to 2 decimals.
	PolicyOvernight WorkHoursPolicy = "overnight"
	// PolicySameDay counts such a shift as 0 hours. Rounded to 1 decimal.
	PolicySameDay WorkHoursPolicy = "same_day"

	DefaultExpectedCheckIn = "08:00"
	DefaultTermWeeks       = 16
	DateLayout             = "2006-01-02"

	lateGrace = 30 // minutes
)

var (
	Statuses = []Status{StatusPresent, StatusAbsent, StatusLate, StatusVeryLate, StatusHalfDay, StatusUnknown}

	DefaultAcademicYearStart = time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)

	clockRegex = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*(AM|PM)?$`)
)

func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// Clock is a time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock reads "HH:MM" (24h) or "H:MM AM/PM" (12h). ok is false for blank or out of bounds values.
func ParseClock(s string) (c Clock, ok bool) {
	m := clockRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Clock{}, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if minute > 59 {
		return Clock{}, false
	}

	switch strings.ToUpper(m[3]) {
	case "":
		if hour > 23 {
			return Clock{}, false
		}
	case "AM":
		if hour < 1 || hour > 12 {
			return Clock{}, false
		}
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour < 1 || hour > 12 {
			return Clock{}, false
		}
		if hour < 12 {
			hour += 12
		}
	}
	return Clock{Hour: hour, Minute: minute}, true
}

// Minutes since midnight.
func (c Clock) Minutes() int { return c.Hour*60 + c.Minute }

// String formats the clock as 24h "HH:MM".
func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// SanitizeClock returns `s` as 24h "HH:MM", or "" if it is not a valid time of day.
func SanitizeClock(s string) string {
	c, ok := ParseClock(s)
	if !ok {
		return ""
	}
	return c.String()
}

// SanitizeDate returns `s` if it is a "YYYY-MM-DD" date, "" otherwise.
func SanitizeDate(s string) string {
	s = core.CleanString(s)
	if _, err := time.Parse(DateLayout, s); err != nil {
		return ""
	}
	return s
}

// WorkHours is the time worked between checkIn and checkOut, in hours.
// It is 0 when either time is absent or invalid, and never negative.
func WorkHours(checkIn, checkOut string, policy WorkHoursPolicy) float64 {
	in, ok := ParseClock(checkIn)
	if !ok {
		return 0
	}
	out, ok := ParseClock(checkOut)
	if !ok {
		return 0
	}

	diff := out.Minutes() - in.Minutes()
	if policy == PolicySameDay {
		if diff <= 0 {
			return 0
		}
		return round(float64(diff)/60, 1)
	}
	if diff < 0 {
		diff += 24 * 60
	}
	return round(float64(diff)/60, 2)
}

func round(f float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(f*p) / p
}

// DetermineStatus classifies a check-in against the expected start time:
// Present when on time, Late within the 30 minutes grace, Very Late after.
// No check-in is Absent; a malformed one is Unknown.
func DetermineStatus(checkIn, expected string) Status {
	if strings.TrimSpace(checkIn) == "" {
		return StatusAbsent
	}
	if expected == "" {
		expected = DefaultExpectedCheckIn
	}
	in, ok := ParseClock(checkIn)
	if !ok {
		return StatusUnknown
	}
	exp, ok := ParseClock(expected)
	if !ok {
		return StatusUnknown
	}

	switch {
	case in.Minutes() <= exp.Minutes():
		return StatusPresent
	case in.Minutes() <= exp.Minutes()+lateGrace:
		return StatusLate
	default:
		return StatusVeryLate
	}
}

// AcademicWeek is the 1-based week of `date` since `yearStart`, clamped to [1, termWeeks].
func AcademicWeek(date, yearStart time.Time, termWeeks int) int {
	if termWeeks <= 0 {
		termWeeks = DefaultTermWeeks
	}
	days := math.Ceil(civil(date).Sub(civil(yearStart)).Hours() / 24)
	week := int(math.Ceil(days / 7))
	if week < 1 {
		return 1
	}
	if week > termWeeks {
		return termWeeks
	}
	return week
}

// civil drops the time of day, keeping the calendar date.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Metrics bundles the attendance policy knobs.
type Metrics struct {
	Policy          WorkHoursPolicy
	ExpectedCheckIn string
	YearStart       time.Time
	TermWeeks       int
}

func MetricsFromConfig(conf core.AttendanceConfig) Metrics {
	m := Metrics{
		Policy:          PolicyOvernight,
		ExpectedCheckIn: DefaultExpectedCheckIn,
		YearStart:       DefaultAcademicYearStart,
		TermWeeks:       DefaultTermWeeks,
	}
	if WorkHoursPolicy(conf.WorkHoursPolicy) == PolicySameDay {
		m.Policy = PolicySameDay
	}
	if _, ok := ParseClock(conf.ExpectedCheckIn); ok {
		m.ExpectedCheckIn = conf.ExpectedCheckIn
	}
	if !conf.AcademicYearStart.IsZero() {
		m.YearStart = conf.AcademicYearStart
	}
	if conf.TermWeeks > 0 {
		m.TermWeeks = conf.TermWeeks
	}
	return m
}

func (m Metrics) WorkHours(checkIn, checkOut string) float64 {
	return WorkHours(checkIn, checkOut, m.Policy)
}

func (m Metrics) Status(checkIn string) Status {
	return DetermineStatus(checkIn, m.ExpectedCheckIn)
}

// Week returns the academic week of a "YYYY-MM-DD" date, 1 if it cannot be parsed.
func (m Metrics) Week(date string) int {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return 1
	}
	return AcademicWeek(t, m.YearStart, m.TermWeeks)
}
