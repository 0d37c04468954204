package attendance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/trezcool/staffroom/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound  = core.NewNotFoundError("attendance record")
	ErrDuplicate = errors.New("attendance already marked for this date")
)

type (
	Repository interface {
		CreateRecords(ctx context.Context, recs ...Record) ([]Record, error)
		GetRecordByID(ctx context.Context, id string) (Record, error)
		// RecordExists reports whether the teacher or student (by SubjectID) already has a record on `date`.
		RecordExists(ctx context.Context, subjectID, date string) (bool, error)
		// QueryRecords returns the records matching `filter`, by date desc then fullname asc.
		QueryRecords(ctx context.Context, filter QueryFilter) ([]Record, error)
		UpdateRecord(ctx context.Context, rec Record) (Record, error)
		DeleteTeacherRecords(ctx context.Context, teacherID string) (int, error)
		DeleteStudentRecords(ctx context.Context, studentID string) (int, error)
	}

	TeacherFinder interface {
		FindTeacher(ctx context.Context, id string) (Subject, error)
	}

	StudentFinder interface {
		FindStudent(ctx context.Context, id string) (Subject, error)
	}

	Service struct {
		repo     Repository
		teachers TeacherFinder
		students StudentFinder
		metrics  Metrics
	}
)

func NewService(conf *core.Config, repo Repository, teachers TeacherFinder, students StudentFinder) *Service {
	return &Service{
		repo:     repo,
		teachers: teachers,
		students: students,
		metrics:  MetricsFromConfig(conf.Attendance),
	}
}

func (svc *Service) Metrics() Metrics { return svc.metrics }

func (svc *Service) findSubject(ctx context.Context, nr NewRecord) (Subject, error) {
	if nr.TeacherID != "" {
		return svc.teachers.FindTeacher(ctx, nr.TeacherID)
	}
	return svc.students.FindStudent(ctx, nr.StudentID)
}

// build derives the week, work hours and (unless given) the status of a new record.
func (svc *Service) build(nr NewRecord, subj Subject, now time.Time) Record {
	status := nr.Status
	if status == "" {
		status = svc.metrics.Status(nr.CheckIn)
	}
	return Record{
		TeacherID:  nr.TeacherID,
		StudentID:  nr.StudentID,
		Fullname:   subj.Fullname,
		Department: subj.Department,
		Date:       nr.Date,
		WeekNum:    svc.metrics.Week(nr.Date),
		CheckIn:    nr.CheckIn,
		CheckOut:   nr.CheckOut,
		WorkHours:  svc.metrics.WorkHours(nr.CheckIn, nr.CheckOut),
		Status:     status,
		Remarks:    nr.Remarks,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (svc *Service) checkDuplicate(ctx context.Context, subjectID, date string) error {
	exists, err := svc.repo.RecordExists(ctx, subjectID, date)
	if err != nil {
		return err
	}
	if exists {
		return core.NewConflictError(ErrDuplicate, "date", date)
	}
	return nil
}

// Mark records the attendance of one teacher or student on one date.
func (svc *Service) Mark(ctx context.Context, nr NewRecord) (Record, error) {
	if err := nr.Validate(); err != nil {
		return Record{}, err
	}
	subj, err := svc.findSubject(ctx, nr)
	if err != nil {
		return Record{}, err
	}
	if err := svc.checkDuplicate(ctx, subj.ID, nr.Date); err != nil {
		return Record{}, err
	}

	recs, err := svc.repo.CreateRecords(ctx, svc.build(nr, subj, NowFunc().UTC()))
	if err != nil {
		return Record{}, err
	}
	return recs[0], nil
}

// MarkBulk checks every entry before storing any of them.
func (svc *Service) MarkBulk(ctx context.Context, nrs []NewRecord) ([]Record, error) {
	if len(nrs) == 0 {
		return []Record{}, nil
	}

	var fe core.FieldErrors
	for i := range nrs {
		if err := nrs[i].Validate(); err != nil {
			if vErr, ok := err.(*core.ValidationError); ok {
				for _, f := range vErr.Fields {
					fe.Add(fmt.Sprintf("records[%d].%s", i, f.Field), f.Error)
				}
				continue
			}
			return nil, err
		}
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	now := NowFunc().UTC()
	seen := make(map[string]bool, len(nrs))
	recs := make([]Record, 0, len(nrs))
	for _, nr := range nrs {
		subj, err := svc.findSubject(ctx, nr)
		if err != nil {
			return nil, err
		}
		key := subj.ID + "|" + nr.Date
		if seen[key] {
			return nil, core.NewConflictError(ErrDuplicate, "date", nr.Date)
		}
		seen[key] = true
		if err := svc.checkDuplicate(ctx, subj.ID, nr.Date); err != nil {
			return nil, err
		}
		recs = append(recs, svc.build(nr, subj, now))
	}
	return svc.repo.CreateRecords(ctx, recs...)
}

// Update changes the times, status or remarks of a record.
// Work hours follow the times; the status follows the check-in unless it is given.
func (svc *Service) Update(ctx context.Context, id string, ur UpdateRecord) (Record, error) {
	rec, err := svc.repo.GetRecordByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if err := ur.Validate(); err != nil {
		return Record{}, err
	}

	if ur.CheckIn != nil {
		rec.CheckIn = *ur.CheckIn
	}
	if ur.CheckOut != nil {
		rec.CheckOut = *ur.CheckOut
	}
	if ur.CheckIn != nil || ur.CheckOut != nil {
		rec.WorkHours = svc.metrics.WorkHours(rec.CheckIn, rec.CheckOut)
	}
	switch {
	case ur.Status != nil:
		rec.Status = *ur.Status
	case ur.CheckIn != nil:
		rec.Status = svc.metrics.Status(rec.CheckIn)
	}
	if ur.Remarks != nil {
		rec.Remarks = *ur.Remarks
	}
	rec.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateRecord(ctx, rec)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Record, error) {
	return svc.repo.GetRecordByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Record, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	recs, err := svc.repo.QueryRecords(ctx, filter)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

// LatestPerTeacher returns the most recent record of every teacher, by fullname.
func (svc *Service) LatestPerTeacher(ctx context.Context) ([]Record, error) {
	recs, err := svc.repo.QueryRecords(ctx, QueryFilter{Subject: SubjectTeacher})
	if err != nil {
		return nil, err
	}

	latest := make(map[string]Record)
	for _, r := range recs {
		cur, ok := latest[r.TeacherID]
		if !ok || r.Date > cur.Date || (r.Date == cur.Date && r.CreatedAt.After(cur.CreatedAt)) {
			latest[r.TeacherID] = r
		}
	}

	out := make([]Record, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Fullname != out[j].Fullname {
			return out[i].Fullname < out[j].Fullname
		}
		return out[i].TeacherID < out[j].TeacherID
	})
	return out, nil
}
