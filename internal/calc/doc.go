// Package calc turns wages, incomes and savings goals into rounded money
// figures. Every function is pure; amounts are rounded to cents with halves
// rounded away from zero.
package calc
