package student

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/attendance"
)

const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = core.NewNotFoundError("student")
)

type Student struct {
	ID         string    `json:"id"`
	Fullname   string    `json:"fullname"`
	Department string    `json:"department"` // class
	Gender     string    `json:"gender"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// NewStudent contains information needed to create or update a Student.
type NewStudent struct {
	Fullname   string `json:"fullname" validate:"required,max=120,personname"`
	Department string `json:"department" validate:"required,max=80"`
	Gender     string `json:"gender" validate:"required,oneof=Male Female"`
}

func (ns *NewStudent) Validate() error {
	ns.Fullname = core.CleanString(ns.Fullname)
	ns.Department = core.CleanString(ns.Department)
	switch core.CleanString(ns.Gender, true /* lower */) {
	case "male", "m":
		ns.Gender = GenderMale
	case "female", "f":
		ns.Gender = GenderFemale
	}
	return core.ValidationErrorFrom(core.Validate.Struct(ns))
}

type (
	Count struct {
		Key   string `json:"key"`
		Count int    `json:"count"`
	}

	Stats struct {
		TotalStudents    int `json:"total_students"`
		TotalDepartments int `json:"total_departments"`
	}

	Summary struct {
		TotalStudents    int `json:"total_students"`
		TotalDepartments int `json:"total_departments"`
		MaleCount        int `json:"male_count"`
		FemaleCount      int `json:"female_count"`
	}
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		// QueryStudents returns the students ordered by fullname, optionally in one department.
		QueryStudents(ctx context.Context, department string) ([]Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		DeleteStudent(ctx context.Context, id string) error
	}

	Service struct {
		repo          Repository
		attRepo       attendance.Repository
		deleteCascade bool
	}
)

var _ attendance.StudentFinder = (*Service)(nil) // interface compliance check

func NewService(conf *core.Config, repo Repository, attRepo attendance.Repository) *Service {
	return &Service{repo: repo, attRepo: attRepo, deleteCascade: conf.Student.DeleteCascade}
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := ns.Validate(); err != nil {
		return Student{}, err
	}
	now := NowFunc().UTC()
	return svc.repo.CreateStudent(ctx, Student{
		Fullname:   ns.Fullname,
		Department: ns.Department,
		Gender:     ns.Gender,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, "")
}

func (svc *Service) ByDepartment(ctx context.Context, department string) ([]Student, error) {
	department = core.CleanString(department)
	if department == "" {
		return []Student{}, nil
	}
	return svc.repo.QueryStudents(ctx, department)
}

// Search lists the students whose fullname or department contains `term` (case-insensitive).
func (svc *Service) Search(ctx context.Context, term string) ([]Student, error) {
	students, err := svc.repo.QueryStudents(ctx, "")
	if err != nil {
		return nil, err
	}
	term = core.CleanString(term, true /* lower */)
	if term == "" {
		return students, nil
	}
	found := make([]Student, 0)
	for _, s := range students {
		if contains(s.Fullname, term) || contains(s.Department, term) {
			found = append(found, s)
		}
	}
	return found, nil
}

func (svc *Service) Update(ctx context.Context, id string, ns NewStudent) (Student, error) {
	s, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if err := ns.Validate(); err != nil {
		return Student{}, err
	}
	s.Fullname = ns.Fullname
	s.Department = ns.Department
	s.Gender = ns.Gender
	s.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateStudent(ctx, s)
}

// Delete removes the student. Their attendance records are removed too when the delete cascade is on.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteStudent(ctx, id); err != nil {
		return err
	}
	if !svc.deleteCascade {
		return nil
	}
	_, err := svc.attRepo.DeleteStudentRecords(ctx, id)
	return err
}

func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	sum, err := svc.Summary(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{TotalStudents: sum.TotalStudents, TotalDepartments: sum.TotalDepartments}, nil
}

// DepartmentStats counts the students per department, biggest first.
func (svc *Service) DepartmentStats(ctx context.Context) ([]Count, error) {
	students, err := svc.repo.QueryStudents(ctx, "")
	if err != nil {
		return nil, err
	}
	return countBy(students, func(s Student) string { return s.Department }), nil
}

// GenderStats counts the students per gender, biggest first.
func (svc *Service) GenderStats(ctx context.Context) ([]Count, error) {
	students, err := svc.repo.QueryStudents(ctx, "")
	if err != nil {
		return nil, err
	}
	return countBy(students, func(s Student) string { return s.Gender }), nil
}

func (svc *Service) Summary(ctx context.Context) (Summary, error) {
	students, err := svc.repo.QueryStudents(ctx, "")
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{TotalStudents: len(students)}
	depts := make(map[string]bool)
	for _, s := range students {
		depts[s.Department] = true
		switch s.Gender {
		case GenderMale:
			sum.MaleCount++
		case GenderFemale:
			sum.FemaleCount++
		}
	}
	sum.TotalDepartments = len(depts)
	return sum, nil
}

// FindStudent returns the student attendance is marked for.
func (svc *Service) FindStudent(ctx context.Context, id string) (attendance.Subject, error) {
	s, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return attendance.Subject{}, err
	}
	return attendance.Subject{ID: s.ID, Fullname: s.Fullname, Department: s.Department}, nil
}

func countBy(students []Student, key func(Student) string) []Count {
	counts := make(map[string]int)
	for _, s := range students {
		counts[key(s)]++
	}
	out := make([]Count, 0, len(counts))
	for k, n := range counts {
		out = append(out, Count{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func contains(s, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(s), lowerTerm)
}
