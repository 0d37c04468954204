package canteen

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/staffroom/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = core.NewNotFoundError("canteen payment")
)

// Payment is the canteen money collected from one department on one date.
type Payment struct {
	ID          string          `json:"id"`
	Department  string          `json:"department"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"` // YYYY-MM-DD
	Notes       string          `json:"notes"`
	CreatedAt   time.Time       `json:"created_at"` // UTC
	UpdatedAt   time.Time       `json:"updated_at"` // UTC
}

// NewPayment contains information needed to record a Payment.
type NewPayment struct {
	Department  string          `json:"department" validate:"required,max=80"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date" validate:"required,datetime=2006-01-02"`
	Notes       string          `json:"notes" validate:"max=500"`
}

func (np *NewPayment) Validate() error {
	np.Department = core.CleanString(np.Department)
	np.PaymentDate = core.CleanString(np.PaymentDate)
	np.Notes = core.CleanString(np.Notes)

	var fe core.FieldErrors
	if err := core.ValidationErrorFrom(core.Validate.Struct(np)); err != nil {
		if vErr, ok := err.(*core.ValidationError); ok {
			fe = vErr.Fields
		} else {
			return err
		}
	}
	if !np.Amount.IsPositive() {
		fe.Add("amount", "must be greater than 0")
	}
	return fe.Err()
}

// DepartmentTotal is the sum of the payments of one department.
type DepartmentTotal struct {
	Department  string          `json:"department"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Count       int             `json:"count"`
}

type (
	Repository interface {
		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		GetPaymentByID(ctx context.Context, id string) (Payment, error)
		// QueryPayments returns the payments made between `from` and `to` (inclusive, either may be empty),
		// by payment date desc.
		QueryPayments(ctx context.Context, from, to string) ([]Payment, error)
		DeletePayment(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, np NewPayment) (Payment, error) {
	if err := np.Validate(); err != nil {
		return Payment{}, err
	}
	now := NowFunc().UTC()
	return svc.repo.CreatePayment(ctx, Payment{
		Department:  np.Department,
		Amount:      np.Amount,
		PaymentDate: np.PaymentDate,
		Notes:       np.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Payment, error) {
	return svc.repo.GetPaymentByID(ctx, id)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetPaymentByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeletePayment(ctx, id)
}

// Range lists the payments made between `from` and `to`, latest first.
func (svc *Service) Range(ctx context.Context, from, to string) ([]Payment, error) {
	from, to = core.CleanString(from), core.CleanString(to)
	if from != "" && to != "" && from > to {
		var fe core.FieldErrors
		fe.Add("from", "must not be after 'to'")
		return nil, fe.Err()
	}
	payments, err := svc.repo.QueryPayments(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []Payment{}
	}
	return payments, nil
}

// Stats sums the payments made between `from` and `to` per department, by department.
func (svc *Service) Stats(ctx context.Context, from, to string) ([]DepartmentTotal, error) {
	payments, err := svc.Range(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return TotalsByDepartment(payments), nil
}

func TotalsByDepartment(payments []Payment) []DepartmentTotal {
	totals := make(map[string]*DepartmentTotal)
	for _, p := range payments {
		dt, ok := totals[p.Department]
		if !ok {
			dt = &DepartmentTotal{Department: p.Department, TotalAmount: decimal.Zero}
			totals[p.Department] = dt
		}
		dt.TotalAmount = dt.TotalAmount.Add(p.Amount)
		dt.Count++
	}

	out := make([]DepartmentTotal, 0, len(totals))
	for _, dt := range totals {
		out = append(out, *dt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Department < out[j].Department })
	return out
}
