package canteen_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/canteen"
	dummydb "github.com/trezcool/staffroom/storage/database/dummy"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := canteen.NewService(dummydb.NewCanteenRepository(dummydb.Open()))

	for _, np := range []canteen.NewPayment{
		{Department: "Basic 1", Amount: d("120.50"), PaymentDate: "2024-09-02"},
		{Department: "KG 2", Amount: d("80"), PaymentDate: "2024-09-03"},
		{Department: "Basic 1", Amount: d("99.50"), PaymentDate: "2024-09-09", Notes: " late "},
		{Department: "Basic 9", Amount: d("40"), PaymentDate: "2024-10-01"},
	} {
		if _, err := svc.Create(ctx, np); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
	}

	payments, err := svc.Range(ctx, "2024-09-01", "2024-09-30")
	require.NoError(t, err)
	require.Len(t, payments, 3)
	assert.Equal(t, "2024-09-09", payments[0].PaymentDate)
	assert.Equal(t, "late", payments[0].Notes)

	stats, err := svc.Stats(ctx, "", "2024-09-30")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "Basic 1", stats[0].Department)
	assert.True(t, stats[0].TotalAmount.Equal(d("220")))
	assert.Equal(t, 2, stats[0].Count)
	assert.Equal(t, "KG 2", stats[1].Department)

	_, err = svc.Range(ctx, "2024-09-30", "2024-09-01")
	assert.True(t, core.IsValidation(err))

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, payments[0].ID))
		_, err := svc.GetByID(ctx, payments[0].ID)
		assert.True(t, core.IsNotFound(err))
		assert.True(t, core.IsNotFound(svc.Delete(ctx, payments[0].ID)))
	})

	tests := []struct {
		name   string
		np     canteen.NewPayment
		fields []string
	}{
		{name: "zero amount", np: canteen.NewPayment{Department: "KG 1", PaymentDate: "2024-09-02"}, fields: []string{"amount"}},
		{name: "bad date", np: canteen.NewPayment{Department: "KG 1", Amount: d("1"), PaymentDate: "02/09/2024"}, fields: []string{"payment_date"}},
		{name: "everything", np: canteen.NewPayment{Amount: d("-1")}, fields: []string{"department", "payment_date", "amount"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.np)
			require.Error(t, err)
			vErr, ok := err.(*core.ValidationError)
			require.True(t, ok, "expected a *core.ValidationError, got %T", err)
			for _, f := range tc.fields {
				assert.True(t, vErr.HasField(f), "expected an error on %q", f)
			}
		})
	}
}
