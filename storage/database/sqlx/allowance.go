package sqlxrepos

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"

	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/allowance"
)

const allowanceColumns = `id, week_number, classes, number_of_teachers, number_of_jhs_teachers,
	total_sum, welfare, balance_after_welfare, office, balance_after_office, kitchen, balance_after_kitchen,
	jhs_classes_total, each_teacher, each_jhs_teacher, created_at, updated_at`

type allowanceRow struct {
	ID                  string          `db:"id"`
	WeekNumber          int             `db:"week_number"`
	Classes             types.JSONText  `db:"classes"`
	NumberOfTeachers    int             `db:"number_of_teachers"`
	NumberOfJHSTeachers int             `db:"number_of_jhs_teachers"`
	TotalSum            decimal.Decimal `db:"total_sum"`
	Welfare             decimal.Decimal `db:"welfare"`
	BalanceAfterWelfare decimal.Decimal `db:"balance_after_welfare"`
	Office              decimal.Decimal `db:"office"`
	BalanceAfterOffice  decimal.Decimal `db:"balance_after_office"`
	Kitchen             decimal.Decimal `db:"kitchen"`
	BalanceAfterKitchen decimal.Decimal `db:"balance_after_kitchen"`
	JHSClassesTotal     decimal.Decimal `db:"jhs_classes_total"`
	EachTeacher         decimal.Decimal `db:"each_teacher"`
	EachJHSTeacher      decimal.Decimal `db:"each_jhs_teacher"`
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`
}

func toAllowanceRow(rec allowance.Record) (allowanceRow, error) {
	classes, err := json.Marshal(rec.Classes)
	if err != nil {
		return allowanceRow{}, err
	}
	return allowanceRow{
		ID:                  rec.ID,
		WeekNumber:          rec.WeekNumber,
		Classes:             classes,
		NumberOfTeachers:    rec.NumberOfTeachers,
		NumberOfJHSTeachers: rec.NumberOfJHSTeachers,
		TotalSum:            rec.TotalSum,
		Welfare:             rec.Welfare,
		BalanceAfterWelfare: rec.BalanceAfterWelfare,
		Office:              rec.Office,
		BalanceAfterOffice:  rec.BalanceAfterOffice,
		Kitchen:             rec.Kitchen,
		BalanceAfterKitchen: rec.BalanceAfterKitchen,
		JHSClassesTotal:     rec.JHSClassesTotal,
		EachTeacher:         rec.EachTeacher,
		EachJHSTeacher:      rec.EachJHSTeacher,
		CreatedAt:           utc(rec.CreatedAt),
		UpdatedAt:           utc(rec.UpdatedAt),
	}, nil
}

func (row allowanceRow) record() (allowance.Record, error) {
	var classes allowance.Classes
	if len(row.Classes) > 0 {
		if err := row.Classes.Unmarshal(&classes); err != nil {
			return allowance.Record{}, err
		}
	}
	return allowance.Record{
		ID:                  row.ID,
		WeekNumber:          row.WeekNumber,
		Classes:             classes,
		NumberOfTeachers:    row.NumberOfTeachers,
		NumberOfJHSTeachers: row.NumberOfJHSTeachers,
		Allocation: allowance.Allocation{
			TotalSum:            row.TotalSum,
			Welfare:             row.Welfare,
			BalanceAfterWelfare: row.BalanceAfterWelfare,
			Office:              row.Office,
			BalanceAfterOffice:  row.BalanceAfterOffice,
			Kitchen:             row.Kitchen,
			BalanceAfterKitchen: row.BalanceAfterKitchen,
			JHSClassesTotal:     row.JHSClassesTotal,
			EachTeacher:         row.EachTeacher,
			EachJHSTeacher:      row.EachJHSTeacher,
		},
		CreatedAt: utc(row.CreatedAt),
		UpdatedAt: utc(row.UpdatedAt),
	}, nil
}

type allowanceRepository struct {
	db *sqlx.DB
}

var _ allowance.Repository = (*allowanceRepository)(nil) // interface compliance check

func NewAllowanceRepository(db *sqlx.DB) allowance.Repository {
	return &allowanceRepository{db: db}
}

func (repo *allowanceRepository) CreateRecord(ctx context.Context, rec allowance.Record) (allowance.Record, error) {
	rec.ID = uuid.New().String()
	row, err := toAllowanceRow(rec)
	if err != nil {
		return allowance.Record{}, core.NewStoreError(err, "encoding allowance record")
	}

	q := `INSERT INTO allowance_record (` + allowanceColumns + `) VALUES (
		:id, :week_number, :classes, :number_of_teachers, :number_of_jhs_teachers,
		:total_sum, :welfare, :balance_after_welfare, :office, :balance_after_office, :kitchen, :balance_after_kitchen,
		:jhs_classes_total, :each_teacher, :each_jhs_teacher, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		if isUniqueViolation(err) {
			return allowance.Record{}, core.NewConflictError(allowance.ErrWeekExists, "week_number", rec.WeekNumber)
		}
		return allowance.Record{}, core.NewStoreError(err, "inserting allowance record")
	}
	return rec, nil
}

func (repo *allowanceRepository) get(ctx context.Context, where string, arg interface{}) (allowance.Record, error) {
	var row allowanceRow
	q := `SELECT ` + allowanceColumns + ` FROM allowance_record WHERE ` + where
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		return allowance.Record{}, storeErr(err, allowance.ErrNotFound, "finding allowance record")
	}
	rec, err := row.record()
	if err != nil {
		return allowance.Record{}, core.NewStoreError(err, "decoding allowance record")
	}
	return rec, nil
}

func (repo *allowanceRepository) GetRecordByID(ctx context.Context, id string) (allowance.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return allowance.Record{}, allowance.ErrNotFound
	}
	return repo.get(ctx, "id = $1", id)
}

func (repo *allowanceRepository) GetRecordByWeek(ctx context.Context, week int) (allowance.Record, error) {
	return repo.get(ctx, "week_number = $1", week)
}

func (repo *allowanceRepository) QueryRecords(ctx context.Context, filter allowance.QueryFilter) ([]allowance.Record, error) {
	var (
		conds []string
		args  []interface{}
	)
	if len(filter.Weeks) > 0 {
		conds = append(conds, "week_number IN (?)")
		args = append(args, filter.Weeks)
	}
	if filter.FromWeek > 0 {
		conds = append(conds, "week_number >= ?")
		args = append(args, filter.FromWeek)
	}
	if filter.ToWeek > 0 {
		conds = append(conds, "week_number <= ?")
		args = append(args, filter.ToWeek)
	}
	if filter.BeforeWeek > 0 {
		conds = append(conds, "week_number < ?")
		args = append(args, filter.BeforeWeek)
	}
	if filter.WelfareOnly {
		conds = append(conds, "welfare > 0")
	}

	q := `SELECT ` + allowanceColumns + ` FROM allowance_record`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if filter.Descending {
		q += " ORDER BY week_number DESC"
	} else {
		q += " ORDER BY week_number ASC"
	}
	if filter.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, core.NewStoreError(err, "building allowance query")
	}
	var rows []allowanceRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, core.NewStoreError(err, "querying allowance records")
	}

	recs := make([]allowance.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, core.NewStoreError(err, "decoding allowance record")
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (repo *allowanceRepository) UpdateRecord(ctx context.Context, rec allowance.Record) (allowance.Record, error) {
	row, err := toAllowanceRow(rec)
	if err != nil {
		return allowance.Record{}, core.NewStoreError(err, "encoding allowance record")
	}

	q := `UPDATE allowance_record SET
		week_number = :week_number, classes = :classes,
		number_of_teachers = :number_of_teachers, number_of_jhs_teachers = :number_of_jhs_teachers,
		total_sum = :total_sum, welfare = :welfare, balance_after_welfare = :balance_after_welfare,
		office = :office, balance_after_office = :balance_after_office,
		kitchen = :kitchen, balance_after_kitchen = :balance_after_kitchen,
		jhs_classes_total = :jhs_classes_total, each_teacher = :each_teacher, each_jhs_teacher = :each_jhs_teacher,
		updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		if isUniqueViolation(err) {
			return allowance.Record{}, core.NewConflictError(allowance.ErrWeekExists, "week_number", rec.WeekNumber)
		}
		return allowance.Record{}, core.NewStoreError(err, "updating allowance record")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return allowance.Record{}, allowance.ErrNotFound
	}
	return rec, nil
}

func (repo *allowanceRepository) DeleteRecord(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return allowance.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM allowance_record WHERE id = $1`, id)
	if err != nil {
		return core.NewStoreError(err, "deleting allowance record")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return allowance.ErrNotFound
	}
	return nil
}
