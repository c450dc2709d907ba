package extract

import (
	"regexp"
	"strings"
)

// PartialPeriodPhrase is the literal period the earnings projection answers.
const PartialPeriodPhrase = "6 months"

var partialPeriodRe = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(PartialPeriodPhrase) + `\b`)

var (
	salaryKeywords = []string{
		"per hour", "hourly", "an hour", "pay rate", "wage", "salary",
		"annual", "weekly", "monthly", "income",
	}
	budgetKeywords      = []string{"budget", "allocate"}
	customHoursKeywords = []string{"hours per week", "hours a week", "what if i work"}
)

// MentionsSalary reports whether q talks about pay. A parsable hourly rate
// counts even without a keyword, so "$18/hr" qualifies.
func MentionsSalary(q string) bool {
	if containsAny(q, salaryKeywords) {
		return true
	}
	_, ok := HourlyRate(q)
	return ok
}

// MentionsBudget reports whether q asks to budget or allocate money.
func MentionsBudget(q string) bool {
	return containsAny(q, budgetKeywords)
}

// MentionsCustomHours reports whether q asks about working different hours.
func MentionsCustomHours(q string) bool {
	return containsAny(q, customHoursKeywords)
}

// MentionsPartialPeriod reports whether q mentions the fixed projection period.
func MentionsPartialPeriod(q string) bool {
	return partialPeriodRe.MatchString(q)
}

func containsAny(q string, words []string) bool {
	lower := strings.ToLower(q)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
