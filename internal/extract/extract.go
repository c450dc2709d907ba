// Package extract pulls money amounts, hours and savings goals out of free text.
//
// Every extractor returns a value and a found flag. Text that does not
// match, or that matches with an unparsable number, is simply "not found".
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// amount matches 20, 20.50, 1200 and 1,200.50.
const amount = `(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)`

var (
	hourlyAfterRe  = regexp.MustCompile(`(?i)\$?\s*` + amount + `\s*(?:per\s+hour|hourly|an\s+hour|/\s*(?:hr|hour)\b)`)
	hourlyBeforeRe = regexp.MustCompile(`(?i)(?:hourly(?:\s+(?:rate|wage|pay))?|per\s+hour)\s*(?:is|of|:|=)?\s*\$\s*` + amount)
	hoursRe        = regexp.MustCompile(`(?i)(\d+)\s*(?:hours|hrs).*?week`)
	savingsRe      = regexp.MustCompile(`(?i)save\s*\$?\s*` + amount + `\s+(?:(?:in|within)\s+)?(\d+)\s*months?\b`)
)

// Goal is a savings target over a number of months.
type Goal struct {
	Total  float64
	Months int
}

// HourlyRate returns the first amount tied to an hourly marker, either
// "$20 per hour" / "20 hourly" / "$20/hr" or "hourly rate of $20".
func HourlyRate(q string) (float64, bool) {
	for _, re := range []*regexp.Regexp{hourlyAfterRe, hourlyBeforeRe} {
		m := re.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		if v, ok := parseAmount(m[1]); ok {
			return v, true
		}
	}
	return 0, false
}

// HoursPerWeek returns the integer right before "hours"/"hrs" when the
// word "week" follows somewhere later in the text.
func HoursPerWeek(q string) (int, bool) {
	m := hoursRe.FindStringSubmatch(q)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// SavingsGoal matches "save <amount> [in|within] <N> months". The amount and
// the months must be separate numbers, and both must parse or nothing is
// returned. Zero months is reported as found.
func SavingsGoal(q string) (Goal, bool) {
	m := savingsRe.FindStringSubmatch(q)
	if m == nil {
		return Goal{}, false
	}
	total, ok := parseAmount(m[1])
	if !ok || total <= 0 {
		return Goal{}, false
	}
	months, err := strconv.Atoi(m[2])
	if err != nil || months < 0 {
		return Goal{}, false
	}
	return Goal{Total: total, Months: months}, true
}

func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
