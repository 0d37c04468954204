package attendance

import (
	"time"

	"github.com/trezcool/staffroom/core"
)

const (
	SubjectTeacher = "teacher"
	SubjectStudent = "student"
)

// Record is the attendance of one teacher (or student) on one date.
// CheckIn and CheckOut are 24h "HH:MM", empty when absent.
type Record struct {
	ID         string    `json:"id"`
	TeacherID  string    `json:"teacher_id,omitempty"`
	StudentID  string    `json:"student_id,omitempty"`
	Fullname   string    `json:"fullname"`
	Department string    `json:"department"`
	Date       string    `json:"date"` // YYYY-MM-DD
	WeekNum    int       `json:"week_num"`
	CheckIn    string    `json:"check_in_time"`
	CheckOut   string    `json:"check_out_time"`
	WorkHours  float64   `json:"work_hours"`
	Status     Status    `json:"status"`
	Remarks    string    `json:"remarks"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// SubjectID is the id of the teacher or student the record is about.
func (r Record) SubjectID() string {
	if r.TeacherID != "" {
		return r.TeacherID
	}
	return r.StudentID
}

// Subject is the teacher or student attendance is taken for.
type Subject struct {
	ID         string
	Fullname   string
	Department string
}

// NewRecord contains information needed to mark attendance. Exactly one of TeacherID or StudentID is set.
// Invalid times are treated as absent. An empty Status is derived from CheckIn.
type NewRecord struct {
	TeacherID string `json:"teacher_id"`
	StudentID string `json:"student_id"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	CheckIn   string `json:"check_in_time"`
	CheckOut  string `json:"check_out_time"`
	Status    Status `json:"status" validate:"omitempty,attstatus"`
	Remarks   string `json:"remarks" validate:"max=500"`
}

func (nr *NewRecord) Clean() {
	nr.TeacherID = core.CleanString(nr.TeacherID)
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.Date = SanitizeDate(nr.Date)
	nr.CheckIn = SanitizeClock(nr.CheckIn)
	nr.CheckOut = SanitizeClock(nr.CheckOut)
	nr.Status = Status(core.CleanString(string(nr.Status)))
	nr.Remarks = core.CleanString(nr.Remarks)
}

func (nr *NewRecord) Validate() error {
	nr.Clean()
	return core.ValidationErrorFrom(core.Validate.Struct(nr))
}

// UpdateRecord defines what may be changed on an existing Record. Nil fields are left untouched.
type UpdateRecord struct {
	CheckIn  *string `json:"check_in_time"`
	CheckOut *string `json:"check_out_time"`
	Status   *Status `json:"status" validate:"omitempty,attstatus"`
	Remarks  *string `json:"remarks" validate:"omitempty,max=500"`
}

func (ur *UpdateRecord) Clean() {
	if ur.CheckIn != nil {
		s := SanitizeClock(*ur.CheckIn)
		ur.CheckIn = &s
	}
	if ur.CheckOut != nil {
		s := SanitizeClock(*ur.CheckOut)
		ur.CheckOut = &s
	}
	if ur.Status != nil {
		s := Status(core.CleanString(string(*ur.Status)))
		if s == "" {
			ur.Status = nil
		} else {
			ur.Status = &s
		}
	}
	if ur.Remarks != nil {
		s := core.CleanString(*ur.Remarks)
		ur.Remarks = &s
	}
}

func (ur *UpdateRecord) Validate() error {
	ur.Clean()
	return core.ValidationErrorFrom(core.Validate.Struct(ur))
}

// QueryFilter applies AND operation on its set fields.
// Search does a case-insensitive match on the name or the department.
type QueryFilter struct {
	Subject    string `query:"subject"` // teacher | student | "" (any)
	TeacherID  string `query:"teacher_id"`
	StudentID  string `query:"student_id"`
	Date       string `query:"date"`
	From       string `query:"from"`
	To         string `query:"to"`
	WeekNum    int    `query:"week"`
	Status     Status `query:"status"`
	Department string `query:"department"`
	Search     string `query:"search"`
}

// Validate cleans the filter. A date, from or to that is set but not "YYYY-MM-DD" is a field error,
// so a typo never widens the query to every record.
func (qf *QueryFilter) Validate() error {
	var fe core.FieldErrors
	dates := []struct {
		field string
		value string
	}{{"date", qf.Date}, {"from", qf.From}, {"to", qf.To}}
	for _, d := range dates {
		if core.CleanString(d.value) != "" && SanitizeDate(d.value) == "" {
			fe.Add(d.field, errFilterDateText)
		}
	}
	qf.Clean()
	return fe.Err()
}

func (qf *QueryFilter) Clean() {
	qf.Subject = core.CleanString(qf.Subject, true /* lower */)
	qf.TeacherID = core.CleanString(qf.TeacherID)
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.Date = SanitizeDate(qf.Date)
	qf.From = SanitizeDate(qf.From)
	qf.To = SanitizeDate(qf.To)
	qf.Status = Status(core.CleanString(string(qf.Status)))
	qf.Department = core.CleanString(qf.Department)
	qf.Search = core.CleanString(qf.Search)
}

// Match reports whether `r` passes the filter.
func (qf QueryFilter) Match(r Record) bool {
	switch qf.Subject {
	case SubjectTeacher:
		if r.TeacherID == "" {
			return false
		}
	case SubjectStudent:
		if r.StudentID == "" {
			return false
		}
	}
	return (qf.TeacherID == "" || r.TeacherID == qf.TeacherID) &&
		(qf.StudentID == "" || r.StudentID == qf.StudentID) &&
		(qf.Date == "" || r.Date == qf.Date) &&
		(qf.From == "" || r.Date >= qf.From) &&
		(qf.To == "" || r.Date <= qf.To) &&
		(qf.WeekNum == 0 || r.WeekNum == qf.WeekNum) &&
		(qf.Status == "" || r.Status == qf.Status) &&
		(qf.Department == "" || r.Department == qf.Department) &&
		(qf.Search == "" || containsFold(r.Fullname, qf.Search) || containsFold(r.Department, qf.Search))
}
