package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/staffroom/core/attendance"
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) CreateRecords(_ context.Context, recs ...attendance.Record) ([]attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	created := make([]attendance.Record, 0, len(recs))
	for _, rec := range recs {
		rec := rec
		rec.ID = newID()
		repo.db.table[rec.ID] = &rec
		created = append(created, rec)
	}
	return created, nil
}

func (repo *attendanceRepository) GetRecordByID(_ context.Context, id string) (attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.table[id]; ok {
		return *rec, nil
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) RecordExists(_ context.Context, subjectID, date string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, rec := range repo.db.table {
		if rec.SubjectID() == subjectID && rec.Date == date {
			return true, nil
		}
	}
	return false, nil
}

func (repo *attendanceRepository) QueryRecords(_ context.Context, filter attendance.QueryFilter) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	recs := make([]attendance.Record, 0)
	for _, rec := range repo.db.table {
		if filter.Match(*rec) {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Date != recs[j].Date {
			return recs[i].Date > recs[j].Date
		}
		if recs[i].Fullname != recs[j].Fullname {
			return recs[i].Fullname < recs[j].Fullname
		}
		return recs[i].ID < recs[j].ID
	})
	return recs, nil
}

func (repo *attendanceRepository) UpdateRecord(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[rec.ID]; !ok {
		return attendance.Record{}, attendance.ErrNotFound
	}
	repo.db.table[rec.ID] = &rec
	return rec, nil
}

func (repo *attendanceRepository) DeleteTeacherRecords(_ context.Context, teacherID string) (int, error) {
	return repo.deleteWhere(func(r *attendance.Record) bool { return r.TeacherID == teacherID }), nil
}

func (repo *attendanceRepository) DeleteStudentRecords(_ context.Context, studentID string) (int, error) {
	return repo.deleteWhere(func(r *attendance.Record) bool { return r.StudentID == studentID }), nil
}

func (repo *attendanceRepository) deleteWhere(match func(r *attendance.Record) bool) int {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for id, rec := range repo.db.table {
		if match(rec) {
			delete(repo.db.table, id)
			n++
		}
	}
	return n
}
