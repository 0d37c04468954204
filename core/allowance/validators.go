package allowance

import (
	"github.com/shopspring/decimal"

	"github.com/trezcool/staffroom/core"
)

var (
	errWeekRangeText       = "week number must be between %d and %d"
	errTeachersText        = "number of teachers must be at least 1"
	errJHSTeachersText     = "number of JHS teachers must not be negative"
	errJHSTeachersReqText  = "number of JHS teachers must be at least 1"
	errTotalSumText        = "total sum must be greater than 0"
	errNegativeAmountText  = "must not be negative"
	errDeductionsExceedTxt = "deductions must not exceed the total sum"
)

// Validate checks `in` against the calculator policy and reports every violated constraint at once.
func (calc *Calculator) Validate(in Input) error {
	var fe core.FieldErrors

	if in.WeekNumber < calc.policy.MinWeek || in.WeekNumber > calc.policy.MaxWeek {
		fe.Addf("week_number", errWeekRangeText, calc.policy.MinWeek, calc.policy.MaxWeek)
	}
	if in.NumberOfTeachers < 1 {
		fe.Add("number_of_teachers", errTeachersText)
	}
	switch {
	case in.NumberOfJHSTeachers < 0:
		fe.Add("number_of_jhs_teachers", errJHSTeachersText)
	case in.NumberOfJHSTeachers == 0 && calc.needsJHSTeachers(in):
		fe.Add("number_of_jhs_teachers", errJHSTeachersReqText)
	}

	for _, b := range ClassBuckets {
		if in.Classes.Get(b.Key).IsNegative() {
			fe.Add("classes."+b.Key, errNegativeAmountText)
		}
	}

	switch calc.policy.Deduction {
	case PolicyManual:
		if !in.TotalSum.IsPositive() {
			fe.Add("total_sum", errTotalSumText)
		}
		deductions := []struct {
			field  string
			amount decimal.Decimal
		}{{"welfare", in.Welfare}, {"office", in.Office}, {"kitchen", in.Kitchen}}
		for _, d := range deductions {
			if d.amount.IsNegative() {
				fe.Add(d.field, errNegativeAmountText)
			}
		}
		if in.TotalSum.IsPositive() && in.Welfare.Add(in.Office).Add(in.Kitchen).GreaterThan(in.TotalSum) {
			fe.Add("total_sum", errDeductionsExceedTxt)
		}
	case PolicyFormula:
		if !TotalGeneral(in.Classes).IsPositive() {
			fe.Add("total_sum", errTotalSumText)
		}
	}

	return fe.Err()
}

// needsJHSTeachers reports whether there is a JHS amount to share, which the weekly calculator requires a divisor for.
func (calc *Calculator) needsJHSTeachers(in Input) bool {
	return calc.policy.Deduction == PolicyFormula &&
		calc.policy.JHSNumerator == NumeratorJHSClasses &&
		TotalJHS(in.Classes).IsPositive()
}
