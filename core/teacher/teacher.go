package teacher

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/attendance"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = core.NewNotFoundError("teacher")
)

type Teacher struct {
	ID         string    `json:"id"`
	Fullname   string    `json:"fullname"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// NewTeacher contains information needed to create or update a Teacher.
type NewTeacher struct {
	Fullname   string `json:"fullname" validate:"required,max=120,personname"`
	Department string `json:"department" validate:"required,max=80"`
}

func (nt *NewTeacher) Validate() error {
	nt.Fullname = core.CleanString(nt.Fullname)
	nt.Department = core.CleanString(nt.Department)
	return core.ValidationErrorFrom(core.Validate.Struct(nt))
}

type Stats struct {
	TotalTeachers    int `json:"total_teachers"`
	TotalDepartments int `json:"total_departments"`
}

type (
	Repository interface {
		CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		GetTeacherByID(ctx context.Context, id string) (Teacher, error)
		// QueryTeachers returns the teachers ordered by fullname.
		// A non-empty prefix keeps the teachers whose fullname starts with it (case-insensitive).
		QueryTeachers(ctx context.Context, prefix string) ([]Teacher, error)
		UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		DeleteTeacher(ctx context.Context, id string) error
	}

	Service struct {
		repo    Repository
		attRepo attendance.Repository
	}
)

var _ attendance.TeacherFinder = (*Service)(nil) // interface compliance check

func NewService(repo Repository, attRepo attendance.Repository) *Service {
	return &Service{repo: repo, attRepo: attRepo}
}

func (svc *Service) Create(ctx context.Context, nt NewTeacher) (Teacher, error) {
	if err := nt.Validate(); err != nil {
		return Teacher{}, err
	}
	now := NowFunc().UTC()
	return svc.repo.CreateTeacher(ctx, Teacher{
		Fullname:   nt.Fullname,
		Department: nt.Department,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacherByID(ctx, id)
}

// Query lists the teachers by fullname.
func (svc *Service) Query(ctx context.Context) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx, "")
}

// Search lists the teachers whose fullname starts with `term`.
func (svc *Service) Search(ctx context.Context, term string) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx, core.CleanString(term))
}

func (svc *Service) Update(ctx context.Context, id string, nt NewTeacher) (Teacher, error) {
	t, err := svc.repo.GetTeacherByID(ctx, id)
	if err != nil {
		return Teacher{}, err
	}
	if err := nt.Validate(); err != nil {
		return Teacher{}, err
	}
	t.Fullname = nt.Fullname
	t.Department = nt.Department
	t.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateTeacher(ctx, t)
}

// Delete removes the teacher along with all their attendance records.
// The teacher row goes first: a failed delete leaves their attendance intact.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteTeacher(ctx, id); err != nil {
		return err
	}
	_, err := svc.attRepo.DeleteTeacherRecords(ctx, id)
	return err
}

func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	teachers, err := svc.repo.QueryTeachers(ctx, "")
	if err != nil {
		return Stats{}, err
	}
	return Stats{TotalTeachers: len(teachers), TotalDepartments: len(Departments(teachers))}, nil
}

// FindTeacher returns the teacher attendance is marked for.
func (svc *Service) FindTeacher(ctx context.Context, id string) (attendance.Subject, error) {
	t, err := svc.repo.GetTeacherByID(ctx, id)
	if err != nil {
		return attendance.Subject{}, err
	}
	return attendance.Subject{ID: t.ID, Fullname: t.Fullname, Department: t.Department}, nil
}

// Departments returns the distinct departments of `teachers`, sorted.
func Departments(teachers []Teacher) []string {
	seen := make(map[string]bool)
	depts := make([]string, 0)
	for _, t := range teachers {
		if !seen[t.Department] {
			seen[t.Department] = true
			depts = append(depts, t.Department)
		}
	}
	sort.Strings(depts)
	return depts
}
