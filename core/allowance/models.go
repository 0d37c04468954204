package allowance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/staffroom/core"
)

// Classes holds the amounts collected per class level for one week.
// A missing bucket counts as zero.
type Classes struct {
	Creche        decimal.Decimal `json:"creche"`
	Nursery1      decimal.Decimal `json:"nursery1"`
	Nursery2      decimal.Decimal `json:"nursery2"`
	KG1           decimal.Decimal `json:"kg1"`
	KG2           decimal.Decimal `json:"kg2"`
	Basic1        decimal.Decimal `json:"basic1"`
	Basic2        decimal.Decimal `json:"basic2"`
	Basic3        decimal.Decimal `json:"basic3"`
	Basic4        decimal.Decimal `json:"basic4"`
	Basic5        decimal.Decimal `json:"basic5"`
	Basic6        decimal.Decimal `json:"basic6"`
	Basic7General decimal.Decimal `json:"basic7_general"`
	Basic7JHS     decimal.Decimal `json:"basic7_jhs"`
	Basic8General decimal.Decimal `json:"basic8_general"`
	Basic8JHS     decimal.Decimal `json:"basic8_jhs"`
	Basic9General decimal.Decimal `json:"basic9_general"`
	Basic9JHS     decimal.Decimal `json:"basic9_jhs"`
}

// ClassBucket names a Classes field, in display order.
type ClassBucket struct {
	Key   string
	Label string
	JHS   bool
}

var ClassBuckets = []ClassBucket{
	{Key: "creche", Label: "Creche"},
	{Key: "nursery1", Label: "Nursery 1"},
	{Key: "nursery2", Label: "Nursery 2"},
	{Key: "kg1", Label: "KG 1"},
	{Key: "kg2", Label: "KG 2"},
	{Key: "basic1", Label: "Basic 1"},
	{Key: "basic2", Label: "Basic 2"},
	{Key: "basic3", Label: "Basic 3"},
	{Key: "basic4", Label: "Basic 4"},
	{Key: "basic5", Label: "Basic 5"},
	{Key: "basic6", Label: "Basic 6"},
	{Key: "basic7_general", Label: "Basic 7 General"},
	{Key: "basic7_jhs", Label: "Basic 7 JHS", JHS: true},
	{Key: "basic8_general", Label: "Basic 8 General"},
	{Key: "basic8_jhs", Label: "Basic 8 JHS", JHS: true},
	{Key: "basic9_general", Label: "Basic 9 General"},
	{Key: "basic9_jhs", Label: "Basic 9 JHS", JHS: true},
}

func (c *Classes) field(key string) *decimal.Decimal {
	switch key {
	case "creche":
		return &c.Creche
	case "nursery1":
		return &c.Nursery1
	case "nursery2":
		return &c.Nursery2
	case "kg1":
		return &c.KG1
	case "kg2":
		return &c.KG2
	case "basic1":
		return &c.Basic1
	case "basic2":
		return &c.Basic2
	case "basic3":
		return &c.Basic3
	case "basic4":
		return &c.Basic4
	case "basic5":
		return &c.Basic5
	case "basic6":
		return &c.Basic6
	case "basic7_general":
		return &c.Basic7General
	case "basic7_jhs":
		return &c.Basic7JHS
	case "basic8_general":
		return &c.Basic8General
	case "basic8_jhs":
		return &c.Basic8JHS
	case "basic9_general":
		return &c.Basic9General
	case "basic9_jhs":
		return &c.Basic9JHS
	}
	return nil
}

// Get returns the amount of the bucket named `key`, zero for unknown keys.
func (c Classes) Get(key string) decimal.Decimal {
	if f := c.field(key); f != nil {
		return *f
	}
	return decimal.Zero
}

// Set sets the amount of the bucket named `key`. Unknown keys are ignored.
func (c *Classes) Set(key string, amount decimal.Decimal) {
	if f := c.field(key); f != nil {
		*f = amount
	}
}

// ParseClasses reads raw form values keyed by bucket name.
// Absent, blank or non-numeric values count as zero.
func ParseClasses(form map[string]string) Classes {
	var c Classes
	for _, b := range ClassBuckets {
		c.Set(b.Key, ParseAmount(form[b.Key]))
	}
	return c
}

// ParseAmount parses a raw form amount, defaulting to zero.
func ParseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(core.CleanString(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Input is one week's figures as submitted by an operator.
// TotalSum, Welfare, Office and Kitchen are only read by the manual deduction policy.
type Input struct {
	WeekNumber          int             `json:"week_number"`
	Classes             Classes         `json:"classes"`
	NumberOfTeachers    int             `json:"number_of_teachers"`
	NumberOfJHSTeachers int             `json:"number_of_jhs_teachers"`
	TotalSum            decimal.Decimal `json:"total_sum"`
	Welfare             decimal.Decimal `json:"welfare"`
	Office              decimal.Decimal `json:"office"`
	Kitchen             decimal.Decimal `json:"kitchen"`
}

// Allocation is the deduction cascade and the per-teacher payouts of one week.
type Allocation struct {
	TotalSum            decimal.Decimal `json:"total_sum"`
	Welfare             decimal.Decimal `json:"welfare"`
	BalanceAfterWelfare decimal.Decimal `json:"balance_after_welfare"`
	Office              decimal.Decimal `json:"office"`
	BalanceAfterOffice  decimal.Decimal `json:"balance_after_office"`
	Kitchen             decimal.Decimal `json:"kitchen"`
	BalanceAfterKitchen decimal.Decimal `json:"balance_after_kitchen"`
	JHSClassesTotal     decimal.Decimal `json:"jhs_classes_total"`
	EachTeacher         decimal.Decimal `json:"each_teacher"`
	EachJHSTeacher      decimal.Decimal `json:"each_jhs_teacher"`
}

// Record is the stored allowance of one academic week. WeekNumber is unique.
type Record struct {
	ID                  string    `json:"id"`
	WeekNumber          int       `json:"week_number"`
	Classes             Classes   `json:"classes"`
	NumberOfTeachers    int       `json:"number_of_teachers"`
	NumberOfJHSTeachers int       `json:"number_of_jhs_teachers"`
	Allocation
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Input returns the figures the record was computed from.
func (r Record) Input() Input {
	return Input{
		WeekNumber:          r.WeekNumber,
		Classes:             r.Classes,
		NumberOfTeachers:    r.NumberOfTeachers,
		NumberOfJHSTeachers: r.NumberOfJHSTeachers,
		TotalSum:            r.TotalSum,
		Welfare:             r.Welfare,
		Office:              r.Office,
		Kitchen:             r.Kitchen,
	}
}

// WelfareEntry is a week whose welfare deduction was paid.
type WelfareEntry struct {
	ID         string          `json:"id"`
	WeekNumber int             `json:"week_number"`
	Welfare    decimal.Decimal `json:"welfare"`
	DatePaid   time.Time       `json:"date_paid"`
}

// Page is one page of a cursor paginated listing.
type Page struct {
	Records    []Record `json:"records"`
	NextCursor string   `json:"next_cursor,omitempty"`
	HasMore    bool     `json:"has_more"`
}

type WelfarePage struct {
	Records    []WelfareEntry `json:"records"`
	NextCursor string         `json:"next_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
}

// WeeklyReport is a record with its derived totals and display amounts.
type WeeklyReport struct {
	Record
	TotalGeneral            decimal.Decimal `json:"total_general"`
	TotalJHS                decimal.Decimal `json:"total_jhs"`
	TotalDeductions         decimal.Decimal `json:"total_deductions"`
	FormattedTotalSum       string          `json:"formatted_total_sum"`
	FormattedEachTeacher    string          `json:"formatted_each_teacher"`
	FormattedEachJHSTeacher string          `json:"formatted_each_jhs_teacher"`
}
