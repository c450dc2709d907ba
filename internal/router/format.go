package router

import (
	"fmt"
	"strings"

	"github.com/nidhogg/smart-money/internal/calc"
)

const (
	needSalaryForPeriod = "I need your salary details to calculate earnings for %d months. Please share your hourly rate or salary information."
	needIncomeForBudget = "I need your monthly income to create a budget. Please share it."
	needHourlyRate      = "I need your hourly rate to work out your salary. Try something like \"I earn $20 per hour and work 40 hours per week\"."
	needHours           = "How many hours per week would you like me to calculate with? Try \"what if I work 30 hours per week\"."
	needMonths          = "I can't spread a savings goal over 0 months. Tell me how many months you want to save over."
)

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func taxPercent(rate float64) string {
	return fmt.Sprintf("%g%%", calc.Round(rate*100))
}

func formatSalary(p calc.SalaryProfile, taxRate float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on %s per hour and %d hours/week:\n", money(p.Hourly), p.HoursPerWeek)
	fmt.Fprintf(&b, "Weekly: %s\n", money(p.Weekly))
	fmt.Fprintf(&b, "Monthly: %s\n", money(p.Monthly))
	fmt.Fprintf(&b, "Annual: %s\n", money(p.Annual))
	fmt.Fprintf(&b, "Monthly After Tax (%s): %s", taxPercent(taxRate), money(p.AfterTaxMonthly(taxRate)))
	return b.String()
}

func formatPlan(p calc.SavingsPlan) string {
	return fmt.Sprintf("To save %s in %d months, you need to save about:\n%s per month.",
		money(p.Goal), p.Months, money(p.Monthly))
}

func formatEarnings(e calc.PeriodEarnings, taxRate float64) string {
	return fmt.Sprintf("In %d months, you'd earn:\nTotal Before Tax: %s\nTotal After Tax (%s): %s",
		e.Months, money(e.BeforeTax), taxPercent(taxRate), money(e.AfterTax))
}

func formatBudget(income float64, b calc.Budget) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Monthly Budget (on %s):\n", money(income))
	fmt.Fprintf(&sb, "Savings: %s\n", money(b.Savings))
	fmt.Fprintf(&sb, "Rent: %s\n", money(b.Rent))
	fmt.Fprintf(&sb, "Groceries: %s\n", money(b.Groceries))
	fmt.Fprintf(&sb, "Other: %s", money(b.Other))
	return sb.String()
}

func formatNeedSalaryForPeriod(months int) string {
	return fmt.Sprintf(needSalaryForPeriod, months)
}
