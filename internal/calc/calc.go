package calc

import (
	"errors"
	"math"
)

const (
	// DefaultTaxRate is the flat income tax applied to after-tax figures.
	DefaultTaxRate = 0.20
	// DefaultSavingsPercent is the share of income set aside before splitting a budget.
	DefaultSavingsPercent = 0.20
	// DefaultHoursPerWeek is used when no weekly hours are known.
	DefaultHoursPerWeek = 40

	weeksPerYear  = 52
	monthsPerYear = 12

	rentShare      = 0.4
	groceriesShare = 0.3
	otherShare     = 0.3
)

// ErrNotComputable is returned when a figure cannot be derived from its inputs.
var ErrNotComputable = errors.New("not computable")

// SalaryProfile is an hourly wage expanded into weekly, monthly and annual pay.
type SalaryProfile struct {
	Hourly       float64 `json:"hourly"`
	HoursPerWeek int     `json:"hours_per_week"`
	Weekly       float64 `json:"weekly"`
	Monthly      float64 `json:"monthly"`
	Annual       float64 `json:"annual"`
}

// Budget splits a monthly income into spending categories.
type Budget struct {
	Savings   float64 `json:"savings"`
	Rent      float64 `json:"rent"`
	Groceries float64 `json:"groceries"`
	Other     float64 `json:"other"`
}

// Total sums every category.
func (b Budget) Total() float64 {
	return b.Savings + b.Rent + b.Groceries + b.Other
}

// SavingsPlan is the monthly installment needed to reach a goal.
type SavingsPlan struct {
	Goal    float64 `json:"goal"`
	Months  int     `json:"months"`
	Monthly float64 `json:"monthly"`
}

// PeriodEarnings is income accumulated over a number of months.
type PeriodEarnings struct {
	Months    int     `json:"months"`
	BeforeTax float64 `json:"before_tax"`
	AfterTax  float64 `json:"after_tax"`
}

// Round rounds v to cents, halves away from zero.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}

// Salary builds a profile from an hourly rate and weekly hours.
// A non-positive hoursPerWeek falls back to DefaultHoursPerWeek.
func Salary(hourly float64, hoursPerWeek int) SalaryProfile {
	if hoursPerWeek <= 0 {
		hoursPerWeek = DefaultHoursPerWeek
	}
	weekly := hourly * float64(hoursPerWeek)
	annual := weekly * weeksPerYear
	monthly := annual / monthsPerYear
	return SalaryProfile{
		Hourly:       Round(hourly),
		HoursPerWeek: hoursPerWeek,
		Weekly:       Round(weekly),
		Monthly:      Round(monthly),
		Annual:       Round(annual),
	}
}

// exactMonthly recomputes monthly pay without intermediate rounding.
func (p SalaryProfile) exactMonthly() float64 {
	return p.Hourly * float64(p.HoursPerWeek) * weeksPerYear / monthsPerYear
}

// AfterTaxMonthly is the monthly take-home pay, derived from the unrounded
// monthly figure so it does not inherit the cent rounding of Monthly.
func (p SalaryProfile) AfterTaxMonthly(taxRate float64) float64 {
	return AfterTax(p.exactMonthly(), taxRate)
}

// AfterTax deducts a flat tax rate from a monthly amount.
func AfterTax(monthly, taxRate float64) float64 {
	return Round(monthly * (1 - taxRate))
}

// BudgetFor reserves savingsPercent of income and splits the rest
// 40/30/30 between rent, groceries and everything else. Each category is
// rounded on its own, so the total may drift from income by a few cents.
func BudgetFor(income, savingsPercent float64) Budget {
	savings := Round(income * savingsPercent)
	remaining := income - savings
	return Budget{
		Savings:   savings,
		Rent:      Round(remaining * rentShare),
		Groceries: Round(remaining * groceriesShare),
		Other:     Round(remaining * otherShare),
	}
}

// MonthlySavings is goal spread evenly over months.
func MonthlySavings(goal float64, months int) (float64, error) {
	if months <= 0 {
		return 0, ErrNotComputable
	}
	return Round(goal / float64(months)), nil
}

// Plan wraps MonthlySavings into a SavingsPlan.
func Plan(goal float64, months int) (SavingsPlan, error) {
	monthly, err := MonthlySavings(goal, months)
	if err != nil {
		return SavingsPlan{}, err
	}
	return SavingsPlan{Goal: goal, Months: months, Monthly: monthly}, nil
}

// Earnings projects a stored profile over months, before and after tax.
// It uses the profile's rounded Monthly, the figure a session carries.
func Earnings(p SalaryProfile, months int, taxRate float64) PeriodEarnings {
	return PeriodEarnings{
		Months:    months,
		BeforeTax: Round(p.Monthly * float64(months)),
		AfterTax:  Round(p.Monthly * (1 - taxRate) * float64(months)),
	}
}
