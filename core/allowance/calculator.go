package allowance

import (
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/staffroom/core"
)

type (
	// DeductionPolicy decides where the welfare, office and kitchen deductions come from.
	DeductionPolicy string

	// JHSNumerator decides which amount is shared between the JHS teachers.
	JHSNumerator string
)

const (
	// PolicyManual subtracts operator supplied deductions from an operator supplied total.
	PolicyManual DeductionPolicy = "manual"
	// PolicyFormula totals the general classes and derives each deduction from a formula.
	PolicyFormula DeductionPolicy = "formula"

	// NumeratorBalance shares the balance left after all deductions.
	NumeratorBalance JHSNumerator = "balance"
	// NumeratorJHSClasses shares the sum of the three JHS class buckets.
	NumeratorJHSClasses JHSNumerator = "jhs_classes"

	// formula parameters
	paramTotal   = "total"
	paramBalance = "balance"

	// non arithmetic formula results are rounded to this many decimal places to drop float noise
	formulaPlaces = 8
)

var (
	DefaultWelfareFormula = "100"
	DefaultOfficeFormula  = "balance * 0.05"
	DefaultKitchenFormula = "balance * 0.05"
)

// Policy configures a Calculator.
type Policy struct {
	Deduction      DeductionPolicy
	JHSNumerator   JHSNumerator
	WelfareFormula string
	OfficeFormula  string
	KitchenFormula string
	MinWeek        int
	MaxWeek        int
}

// DefaultPolicy is the formula policy used by the weekly calculator: welfare 100, then 5% office and 5% kitchen.
func DefaultPolicy() Policy {
	return Policy{
		Deduction:      PolicyFormula,
		JHSNumerator:   NumeratorJHSClasses,
		WelfareFormula: DefaultWelfareFormula,
		OfficeFormula:  DefaultOfficeFormula,
		KitchenFormula: DefaultKitchenFormula,
		MinWeek:        1,
		MaxWeek:        16,
	}
}

// PolicyFromConfig builds a Policy from the app config, falling back to DefaultPolicy for unset values.
func PolicyFromConfig(conf core.AllowanceConfig) Policy {
	p := DefaultPolicy()
	if conf.Policy != "" {
		p.Deduction = DeductionPolicy(core.CleanString(conf.Policy, true /* lower */))
	}
	if conf.JHSNumerator != "" {
		p.JHSNumerator = JHSNumerator(core.CleanString(conf.JHSNumerator, true /* lower */))
	}
	if conf.WelfareFormula != "" {
		p.WelfareFormula = conf.WelfareFormula
	}
	if conf.OfficeFormula != "" {
		p.OfficeFormula = conf.OfficeFormula
	}
	if conf.KitchenFormula != "" {
		p.KitchenFormula = conf.KitchenFormula
	}
	if conf.MinWeek > 0 {
		p.MinWeek = conf.MinWeek
	}
	if conf.MaxWeek > 0 {
		p.MaxWeek = conf.MaxWeek
	}
	return p
}

// Calculator turns one week's figures into an Allocation. It holds no state besides its policy.
type Calculator struct {
	policy  Policy
	welfare *govaluate.EvaluableExpression
	office  *govaluate.EvaluableExpression
	kitchen *govaluate.EvaluableExpression
}

// NewCalculator checks the policy and compiles its formulas.
func NewCalculator(policy Policy) (*Calculator, error) {
	switch policy.Deduction {
	case PolicyManual, PolicyFormula:
	default:
		return nil, fmt.Errorf("unknown deduction policy %q", policy.Deduction)
	}
	switch policy.JHSNumerator {
	case NumeratorBalance, NumeratorJHSClasses:
	default:
		return nil, fmt.Errorf("unknown JHS numerator %q", policy.JHSNumerator)
	}
	if policy.MinWeek > policy.MaxWeek {
		return nil, fmt.Errorf("invalid week range [%d, %d]", policy.MinWeek, policy.MaxWeek)
	}

	calc := &Calculator{policy: policy}
	if policy.Deduction == PolicyFormula {
		var err error
		if calc.welfare, err = compileFormula(policy.WelfareFormula); err != nil {
			return nil, errors.Wrap(err, "welfare formula")
		}
		if calc.office, err = compileFormula(policy.OfficeFormula); err != nil {
			return nil, errors.Wrap(err, "office formula")
		}
		if calc.kitchen, err = compileFormula(policy.KitchenFormula); err != nil {
			return nil, errors.Wrap(err, "kitchen formula")
		}
	}
	return calc, nil
}

// MustNewCalculator is like NewCalculator but panics on an invalid policy.
func MustNewCalculator(policy Policy) *Calculator {
	calc, err := NewCalculator(policy)
	if err != nil {
		panic(err)
	}
	return calc
}

func compileFormula(formula string) (*govaluate.EvaluableExpression, error) {
	expr, err := govaluate.NewEvaluableExpression(formula)
	if err != nil {
		return nil, err
	}
	for _, v := range expr.Vars() {
		if v != paramTotal && v != paramBalance {
			return nil, fmt.Errorf("unknown parameter %q in %q", v, formula)
		}
	}
	// dry run: the result must be a number
	if _, err := evaluate(expr, decimal.NewFromInt(1000), decimal.NewFromInt(900)); err != nil {
		return nil, err
	}
	return expr, nil
}

// evaluate runs `expr` with the two parameters.
// Arithmetic formulas (numbers, parameters, + - * / and parentheses) are evaluated exactly in decimal;
// anything else goes through govaluate's float64 and is rounded to formulaPlaces.
// A division by zero, or a non finite float result, yields zero.
func evaluate(expr *govaluate.EvaluableExpression, total, balance decimal.Decimal) (decimal.Decimal, error) {
	params := map[string]decimal.Decimal{paramTotal: total, paramBalance: balance}
	if amount, ok := evaluateDecimal(expr.Tokens(), params); ok {
		return amount, nil
	}

	result, err := expr.Evaluate(map[string]interface{}{
		paramTotal:   total.InexactFloat64(),
		paramBalance: balance.InexactFloat64(),
	})
	if err != nil {
		return decimal.Zero, err
	}
	amount, ok := result.(float64)
	if !ok {
		return decimal.Zero, fmt.Errorf("%q does not evaluate to a number", expr.String())
	}
	if math.IsInf(amount, 0) || math.IsNaN(amount) {
		return decimal.Zero, nil
	}
	return decimal.NewFromFloat(amount).Round(formulaPlaces), nil
}

// evaluateDecimal evaluates arithmetic tokens. ok is false when the formula uses anything else.
func evaluateDecimal(tokens []govaluate.ExpressionToken, params map[string]decimal.Decimal) (amount decimal.Decimal, ok bool) {
	p := decimalParser{tokens: tokens, params: params}
	amount, ok = p.sum()
	if !ok || p.pos != len(p.tokens) {
		return decimal.Zero, false
	}
	return amount, true
}

// decimalParser is a recursive descent over govaluate tokens:
//
//	sum     = product { ("+" | "-") product }
//	product = factor { ("*" | "/") factor }
//	factor  = number | parameter | "-" factor | "(" sum ")"
type decimalParser struct {
	tokens []govaluate.ExpressionToken
	pos    int
	params map[string]decimal.Decimal
}

func (p *decimalParser) peekModifier(ops ...string) (string, bool) {
	if p.pos >= len(p.tokens) || p.tokens[p.pos].Kind != govaluate.MODIFIER {
		return "", false
	}
	op, _ := p.tokens[p.pos].Value.(string)
	for _, o := range ops {
		if op == o {
			return op, true
		}
	}
	return "", false
}

func (p *decimalParser) sum() (decimal.Decimal, bool) {
	left, ok := p.product()
	for ok {
		op, found := p.peekModifier("+", "-")
		if !found {
			break
		}
		p.pos++
		var right decimal.Decimal
		if right, ok = p.product(); !ok {
			break
		}
		if op == "+" {
			left = left.Add(right)
		} else {
			left = left.Sub(right)
		}
	}
	return left, ok
}

func (p *decimalParser) product() (decimal.Decimal, bool) {
	left, ok := p.factor()
	for ok {
		op, found := p.peekModifier("*", "/")
		if !found {
			break
		}
		p.pos++
		var right decimal.Decimal
		if right, ok = p.factor(); !ok {
			break
		}
		switch {
		case op == "*":
			left = left.Mul(right)
		case right.IsZero():
			left = decimal.Zero
		default:
			left = left.Div(right)
		}
	}
	return left, ok
}

func (p *decimalParser) factor() (decimal.Decimal, bool) {
	if p.pos >= len(p.tokens) {
		return decimal.Zero, false
	}
	tok := p.tokens[p.pos]
	p.pos++
	switch tok.Kind {
	case govaluate.NUMERIC:
		f, ok := tok.Value.(float64)
		return decimal.NewFromFloat(f), ok
	case govaluate.VARIABLE:
		name, _ := tok.Value.(string)
		d, ok := p.params[name]
		return d, ok
	case govaluate.PREFIX:
		if op, _ := tok.Value.(string); op != "-" {
			return decimal.Zero, false
		}
		d, ok := p.factor()
		return d.Neg(), ok
	case govaluate.CLAUSE:
		d, ok := p.sum()
		if !ok || p.pos >= len(p.tokens) || p.tokens[p.pos].Kind != govaluate.CLAUSE_CLOSE {
			return decimal.Zero, false
		}
		p.pos++
		return d, true
	}
	return decimal.Zero, false
}

func (calc *Calculator) Policy() Policy { return calc.policy }

// Compute validates `in` then allocates it.
// Every violated constraint is reported in the returned *core.ValidationError.
func (calc *Calculator) Compute(in Input) (Allocation, error) {
	if err := calc.Validate(in); err != nil {
		return Allocation{}, err
	}
	return calc.Allocate(in)
}

// Allocate runs the deduction cascade without validating `in`.
// Zero (or negative) teacher counts give zero payouts instead of failing,
// so a form can be previewed while it is being filled.
func (calc *Calculator) Allocate(in Input) (Allocation, error) {
	var (
		alloc Allocation
		err   error
	)

	switch calc.policy.Deduction {
	case PolicyManual:
		alloc.TotalSum = in.TotalSum
		alloc.Welfare = in.Welfare
		alloc.BalanceAfterWelfare = alloc.TotalSum.Sub(alloc.Welfare)
		alloc.Office = in.Office
		alloc.BalanceAfterOffice = alloc.BalanceAfterWelfare.Sub(alloc.Office)
		alloc.Kitchen = in.Kitchen
		alloc.BalanceAfterKitchen = alloc.BalanceAfterOffice.Sub(alloc.Kitchen)
	case PolicyFormula:
		alloc.TotalSum = TotalGeneral(in.Classes)
		if alloc.Welfare, err = evaluate(calc.welfare, alloc.TotalSum, alloc.TotalSum); err != nil {
			return Allocation{}, errors.Wrap(err, "evaluating welfare")
		}
		alloc.BalanceAfterWelfare = alloc.TotalSum.Sub(alloc.Welfare)
		if alloc.Office, err = evaluate(calc.office, alloc.TotalSum, alloc.BalanceAfterWelfare); err != nil {
			return Allocation{}, errors.Wrap(err, "evaluating office")
		}
		alloc.BalanceAfterOffice = alloc.BalanceAfterWelfare.Sub(alloc.Office)
		if alloc.Kitchen, err = evaluate(calc.kitchen, alloc.TotalSum, alloc.BalanceAfterOffice); err != nil {
			return Allocation{}, errors.Wrap(err, "evaluating kitchen")
		}
		alloc.BalanceAfterKitchen = alloc.BalanceAfterOffice.Sub(alloc.Kitchen)
	}

	alloc.JHSClassesTotal = TotalJHS(in.Classes)
	alloc.EachTeacher = share(alloc.BalanceAfterKitchen, in.NumberOfTeachers)

	jhsNumerator := alloc.BalanceAfterKitchen
	if calc.policy.JHSNumerator == NumeratorJHSClasses {
		jhsNumerator = alloc.JHSClassesTotal
	}
	alloc.EachJHSTeacher = share(jhsNumerator, in.NumberOfJHSTeachers)
	return alloc, nil
}

// share divides `amount` between `n` people, 0 when there is nobody to share with.
func share(amount decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	return amount.Div(decimal.NewFromInt(int64(n)))
}

// TotalGeneral sums all the non JHS class buckets.
func TotalGeneral(c Classes) decimal.Decimal {
	total := decimal.Zero
	for _, b := range ClassBuckets {
		if !b.JHS {
			total = total.Add(c.Get(b.Key))
		}
	}
	return total
}

// TotalJHS sums the basic 7, 8 & 9 JHS buckets.
func TotalJHS(c Classes) decimal.Decimal {
	return c.Basic7JHS.Add(c.Basic8JHS).Add(c.Basic9JHS)
}

// TotalDeductions is welfare + office + kitchen.
func TotalDeductions(a Allocation) decimal.Decimal {
	return a.Welfare.Add(a.Office).Add(a.Kitchen)
}
