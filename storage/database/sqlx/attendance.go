package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/attendance"
)

const attendanceColumns = `id, teacher_id, student_id, fullname, department, date, week_num,
	check_in, check_out, work_hours, status, remarks, created_at, updated_at`

type attendanceRow struct {
	ID         string      `db:"id"`
	TeacherID  null.String `db:"teacher_id"`
	StudentID  null.String `db:"student_id"`
	Fullname   string      `db:"fullname"`
	Department string      `db:"department"`
	Date       time.Time   `db:"date"`
	WeekNum    int         `db:"week_num"`
	CheckIn    null.String `db:"check_in"`
	CheckOut   null.String `db:"check_out"`
	WorkHours  float64     `db:"work_hours"`
	Status     string      `db:"status"`
	Remarks    string      `db:"remarks"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func toAttendanceRow(rec attendance.Record) (attendanceRow, error) {
	date, err := time.Parse(dateLayout, rec.Date)
	if err != nil {
		return attendanceRow{}, err
	}
	return attendanceRow{
		ID:         rec.ID,
		TeacherID:  null.NewString(rec.TeacherID, rec.TeacherID != ""),
		StudentID:  null.NewString(rec.StudentID, rec.StudentID != ""),
		Fullname:   rec.Fullname,
		Department: rec.Department,
		Date:       date,
		WeekNum:    rec.WeekNum,
		CheckIn:    null.NewString(rec.CheckIn, rec.CheckIn != ""),
		CheckOut:   null.NewString(rec.CheckOut, rec.CheckOut != ""),
		WorkHours:  rec.WorkHours,
		Status:     string(rec.Status),
		Remarks:    rec.Remarks,
		CreatedAt:  utc(rec.CreatedAt),
		UpdatedAt:  utc(rec.UpdatedAt),
	}, nil
}

func (row attendanceRow) record() attendance.Record {
	return attendance.Record{
		ID:         row.ID,
		TeacherID:  row.TeacherID.String,
		StudentID:  row.StudentID.String,
		Fullname:   row.Fullname,
		Department: row.Department,
		Date:       row.Date.Format(dateLayout),
		WeekNum:    row.WeekNum,
		CheckIn:    row.CheckIn.String,
		CheckOut:   row.CheckOut.String,
		WorkHours:  row.WorkHours,
		Status:     attendance.Status(row.Status),
		Remarks:    row.Remarks,
		CreatedAt:  utc(row.CreatedAt),
		UpdatedAt:  utc(row.UpdatedAt),
	}
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

// CreateRecords stores all records in one transaction.
func (repo *attendanceRepository) CreateRecords(ctx context.Context, recs ...attendance.Record) ([]attendance.Record, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, core.NewStoreError(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	q := `INSERT INTO attendance_record (` + attendanceColumns + `) VALUES (
		:id, :teacher_id, :student_id, :fullname, :department, :date, :week_num,
		:check_in, :check_out, :work_hours, :status, :remarks, :created_at, :updated_at)`
	created := make([]attendance.Record, 0, len(recs))
	for _, rec := range recs {
		rec.ID = uuid.New().String()
		row, err := toAttendanceRow(rec)
		if err != nil {
			return nil, core.NewStoreError(err, "encoding attendance record")
		}
		if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
			if isUniqueViolation(err) {
				return nil, core.NewConflictError(attendance.ErrDuplicate, "date", rec.Date)
			}
			return nil, core.NewStoreError(err, "inserting attendance record")
		}
		created = append(created, rec)
	}
	if err := tx.Commit(); err != nil {
		return nil, core.NewStoreError(err, "committing attendance records")
	}
	return created, nil
}

func (repo *attendanceRepository) GetRecordByID(ctx context.Context, id string) (attendance.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return attendance.Record{}, attendance.ErrNotFound
	}
	var row attendanceRow
	q := `SELECT ` + attendanceColumns + ` FROM attendance_record WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return attendance.Record{}, storeErr(err, attendance.ErrNotFound, "finding attendance record")
	}
	return row.record(), nil
}

func (repo *attendanceRepository) RecordExists(ctx context.Context, subjectID, date string) (bool, error) {
	if _, err := uuid.Parse(subjectID); err != nil {
		return false, nil
	}
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM attendance_record WHERE (teacher_id = $1 OR student_id = $1) AND date = $2)`
	if err := repo.db.GetContext(ctx, &exists, q, subjectID, date); err != nil {
		return false, core.NewStoreError(err, "checking attendance record")
	}
	return exists, nil
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Record, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg ...interface{}) {
		conds = append(conds, cond)
		args = append(args, arg...)
	}

	switch filter.Subject {
	case attendance.SubjectTeacher:
		add("teacher_id IS NOT NULL")
	case attendance.SubjectStudent:
		add("student_id IS NOT NULL")
	}
	if filter.TeacherID != "" {
		add("teacher_id::text = ?", filter.TeacherID)
	}
	if filter.StudentID != "" {
		add("student_id::text = ?", filter.StudentID)
	}
	if filter.Date != "" {
		add("date = ?", filter.Date)
	}
	if filter.From != "" {
		add("date >= ?", filter.From)
	}
	if filter.To != "" {
		add("date <= ?", filter.To)
	}
	if filter.WeekNum > 0 {
		add("week_num = ?", filter.WeekNum)
	}
	if filter.Status != "" {
		add("status = ?", string(filter.Status))
	}
	if filter.Department != "" {
		add("department = ?", filter.Department)
	}
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		add("(fullname ILIKE ? OR department ILIKE ?)", val, val)
	}

	q := `SELECT ` + attendanceColumns + ` FROM attendance_record`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY date DESC, fullname ASC, id ASC"

	var rows []attendanceRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, core.NewStoreError(err, "querying attendance records")
	}
	recs := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.record())
	}
	return recs, nil
}

func (repo *attendanceRepository) UpdateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	row, err := toAttendanceRow(rec)
	if err != nil {
		return attendance.Record{}, core.NewStoreError(err, "encoding attendance record")
	}
	q := `UPDATE attendance_record SET
		check_in = :check_in, check_out = :check_out, work_hours = :work_hours,
		status = :status, remarks = :remarks, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return attendance.Record{}, core.NewStoreError(err, "updating attendance record")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.Record{}, attendance.ErrNotFound
	}
	return rec, nil
}

func (repo *attendanceRepository) DeleteTeacherRecords(ctx context.Context, teacherID string) (int, error) {
	return repo.deleteWhere(ctx, "teacher_id", teacherID)
}

func (repo *attendanceRepository) DeleteStudentRecords(ctx context.Context, studentID string) (int, error) {
	return repo.deleteWhere(ctx, "student_id", studentID)
}

func (repo *attendanceRepository) deleteWhere(ctx context.Context, column, id string) (int, error) {
	if _, err := uuid.Parse(id); err != nil {
		return 0, nil
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM attendance_record WHERE `+column+` = $1`, id)
	if err != nil {
		return 0, core.NewStoreError(err, "deleting attendance records")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, core.NewStoreError(err, "deleting attendance records")
	}
	return int(n), nil
}
