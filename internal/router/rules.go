package router

import (
	"context"

	"github.com/nidhogg/smart-money/internal/calc"
	"github.com/nidhogg/smart-money/internal/extract"
)

// Intent names the rule that produced a reply.
type Intent string

const (
	IntentSavingsGoal   Intent = "savings_goal"
	IntentCustomHours   Intent = "custom_hours"
	IntentPartialPeriod Intent = "partial_period"
	IntentSalary        Intent = "general_salary"
	IntentBudget        Intent = "budget"
	IntentFallback      Intent = "fallback"
)

// partialMonths is the projection length behind extract.PartialPeriodPhrase.
const partialMonths = 6

// Outcome is what a rule made of a turn.
type Outcome int

const (
	// Pass means the rule cannot apply; routing continues.
	Pass Outcome = iota
	// Resolved means Turn.Answer holds the reply.
	Resolved
	// NeedsInfo means Turn.Answer holds a clarifying question.
	NeedsInfo
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case NeedsInfo:
		return "needs_info"
	default:
		return "pass"
	}
}

// Turn is one question being routed, together with the session state it
// was asked in.
type Turn struct {
	SessionID string
	Question  string
	// Salary is a copy of the stored profile, nil when none exists.
	Salary *calc.SalaryProfile
	Answer string

	updated *calc.SalaryProfile
	// forceSalary routes the turn to the salary rule even without a salary
	// keyword in the question.
	forceSalary bool
}

// Store marks p to be saved as the session's profile once the turn resolves.
func (t *Turn) Store(p calc.SalaryProfile) {
	t.updated = &p
}

// Rule is one entry of the dispatch table. Match is a cheap keyword or
// pattern test; Resolve does the work. A Soft rule's clarification is held
// back until every later rule has had a chance to resolve the turn.
type Rule struct {
	Name    Intent
	Match   func(t *Turn) bool
	Resolve func(ctx context.Context, t *Turn) (Outcome, error)
	Soft    bool
}

func (r *Router) buildRules() []Rule {
	return []Rule{
		{
			Name:    IntentSavingsGoal,
			Match:   func(t *Turn) bool { _, ok := extract.SavingsGoal(t.Question); return ok },
			Resolve: r.resolveSavingsGoal,
		},
		{
			Name:    IntentCustomHours,
			Match:   func(t *Turn) bool { return extract.MentionsCustomHours(t.Question) },
			Resolve: r.resolveCustomHours,
		},
		{
			Name:    IntentPartialPeriod,
			Match:   func(t *Turn) bool { return extract.MentionsPartialPeriod(t.Question) },
			Resolve: r.resolvePartialPeriod,
		},
		{
			Name:    IntentSalary,
			Match:   func(t *Turn) bool { return t.forceSalary || extract.MentionsSalary(t.Question) },
			Resolve: r.resolveSalary,
			Soft:    true,
		},
		{
			Name:    IntentBudget,
			Match:   func(t *Turn) bool { return extract.MentionsBudget(t.Question) },
			Resolve: r.resolveBudget,
		},
	}
}

func (r *Router) resolveSavingsGoal(_ context.Context, t *Turn) (Outcome, error) {
	goal, ok := extract.SavingsGoal(t.Question)
	if !ok {
		return Pass, nil
	}
	plan, err := calc.Plan(goal.Total, goal.Months)
	if err != nil {
		t.Answer = needMonths
		return NeedsInfo, nil
	}
	t.Answer = formatPlan(plan)
	return Resolved, nil
}

// resolveCustomHours reuses the stored hourly rate with new weekly hours.
// Without a stored rate there is nothing to reuse, so the turn is handed to
// the general salary rule, which asks for the rate.
func (r *Router) resolveCustomHours(_ context.Context, t *Turn) (Outcome, error) {
	if t.Salary == nil || t.Salary.Hourly <= 0 {
		t.forceSalary = true
		return Pass, nil
	}
	hours, ok := extract.HoursPerWeek(t.Question)
	if !ok {
		t.Answer = needHours
		return NeedsInfo, nil
	}
	hourly := t.Salary.Hourly
	if rate, ok := extract.HourlyRate(t.Question); ok && rate > 0 {
		hourly = rate
	}
	p := calc.Salary(hourly, hours)
	t.Store(p)
	t.Answer = formatSalary(p, r.cfg.TaxRate)
	return Resolved, nil
}

func (r *Router) resolvePartialPeriod(_ context.Context, t *Turn) (Outcome, error) {
	if t.Salary == nil || t.Salary.Monthly <= 0 {
		t.Answer = formatNeedSalaryForPeriod(partialMonths)
		return NeedsInfo, nil
	}
	t.Answer = formatEarnings(calc.Earnings(*t.Salary, partialMonths, r.cfg.TaxRate), r.cfg.TaxRate)
	return Resolved, nil
}

// resolveSalary takes each quantity from the question when present and
// from the stored profile otherwise.
func (r *Router) resolveSalary(_ context.Context, t *Turn) (Outcome, error) {
	hourly, ok := extract.HourlyRate(t.Question)
	if !ok && t.Salary != nil {
		hourly = t.Salary.Hourly
	}
	if hourly <= 0 {
		t.Answer = needHourlyRate
		return NeedsInfo, nil
	}

	hours, ok := extract.HoursPerWeek(t.Question)
	if !ok {
		hours = r.cfg.DefaultHours
		if t.Salary != nil && t.Salary.HoursPerWeek > 0 {
			hours = t.Salary.HoursPerWeek
		}
	}

	p := calc.Salary(hourly, hours)
	t.Store(p)
	t.Answer = formatSalary(p, r.cfg.TaxRate)
	return Resolved, nil
}

func (r *Router) resolveBudget(_ context.Context, t *Turn) (Outcome, error) {
	if t.Salary == nil || t.Salary.Monthly <= 0 {
		t.Answer = needIncomeForBudget
		return NeedsInfo, nil
	}
	income := t.Salary.Monthly
	t.Answer = formatBudget(income, calc.BudgetFor(income, r.cfg.SavingsPercent))
	return Resolved, nil
}
