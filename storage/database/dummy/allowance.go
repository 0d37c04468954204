package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/staffroom/core/allowance"
)

type allowanceRepository struct {
	db *allowanceTable
}

var _ allowance.Repository = (*allowanceRepository)(nil) // interface compliance check

func NewAllowanceRepository(db *DB) allowance.Repository {
	return &allowanceRepository{db: db.allowance}
}

func (repo *allowanceRepository) CreateRecord(_ context.Context, rec allowance.Record) (allowance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec.ID = newID()
	repo.db.table[rec.ID] = &rec
	return rec, nil
}

func (repo *allowanceRepository) GetRecordByID(_ context.Context, id string) (allowance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.table[id]; ok {
		return *rec, nil
	}
	return allowance.Record{}, allowance.ErrNotFound
}

func (repo *allowanceRepository) GetRecordByWeek(_ context.Context, week int) (allowance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, rec := range repo.db.table {
		if rec.WeekNumber == week {
			return *rec, nil
		}
	}
	return allowance.Record{}, allowance.ErrNotFound
}

func (repo *allowanceRepository) QueryRecords(_ context.Context, filter allowance.QueryFilter) ([]allowance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	weeks := make(map[int]bool, len(filter.Weeks))
	for _, w := range filter.Weeks {
		weeks[w] = true
	}

	recs := make([]allowance.Record, 0)
	for _, rec := range repo.db.table {
		switch {
		case len(weeks) > 0 && !weeks[rec.WeekNumber]:
		case filter.FromWeek > 0 && rec.WeekNumber < filter.FromWeek:
		case filter.ToWeek > 0 && rec.WeekNumber > filter.ToWeek:
		case filter.BeforeWeek > 0 && rec.WeekNumber >= filter.BeforeWeek:
		case filter.WelfareOnly && !rec.Welfare.IsPositive():
		default:
			recs = append(recs, *rec)
		}
	}

	sort.Slice(recs, func(i, j int) bool {
		if filter.Descending {
			return recs[i].WeekNumber > recs[j].WeekNumber
		}
		return recs[i].WeekNumber < recs[j].WeekNumber
	})
	if filter.Limit > 0 && len(recs) > filter.Limit {
		recs = recs[:filter.Limit]
	}
	return recs, nil
}

func (repo *allowanceRepository) UpdateRecord(_ context.Context, rec allowance.Record) (allowance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[rec.ID]; !ok {
		return allowance.Record{}, allowance.ErrNotFound
	}
	repo.db.table[rec.ID] = &rec
	return rec, nil
}

func (repo *allowanceRepository) DeleteRecord(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return allowance.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
