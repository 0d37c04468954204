package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/staffroom/core/canteen"
	"github.com/trezcool/staffroom/core/student"
	"github.com/trezcool/staffroom/core/teacher"
)

// Teachers

type teacherRepository struct {
	db *teacherTable
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *DB) teacher.Repository {
	return &teacherRepository{db: db.teacher}
}

func (repo *teacherRepository) CreateTeacher(_ context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t.ID = newID()
	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *teacherRepository) GetTeacherByID(_ context.Context, id string) (teacher.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.table[id]; ok {
		return *t, nil
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) QueryTeachers(_ context.Context, prefix string) ([]teacher.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	prefix = strings.ToLower(prefix)
	teachers := make([]teacher.Teacher, 0, len(repo.db.table))
	for _, t := range repo.db.table {
		if prefix == "" || strings.HasPrefix(strings.ToLower(t.Fullname), prefix) {
			teachers = append(teachers, *t)
		}
	}
	sort.Slice(teachers, func(i, j int) bool {
		if teachers[i].Fullname != teachers[j].Fullname {
			return teachers[i].Fullname < teachers[j].Fullname
		}
		return teachers[i].ID < teachers[j].ID
	})
	return teachers, nil
}

func (repo *teacherRepository) UpdateTeacher(_ context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[t.ID]; !ok {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *teacherRepository) DeleteTeacher(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return teacher.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

// Students

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.ID = newID()
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *studentRepository) GetStudentByID(_ context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return *s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, department string) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		if department == "" || s.Department == department {
			students = append(students, *s)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].Fullname != students[j].Fullname {
			return students[i].Fullname < students[j].Fullname
		}
		return students[i].ID < students[j].ID
	})
	return students, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[s.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return student.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

// Canteen

type canteenRepository struct {
	db *canteenTable
}

var _ canteen.Repository = (*canteenRepository)(nil) // interface compliance check

func NewCanteenRepository(db *DB) canteen.Repository {
	return &canteenRepository{db: db.canteen}
}

func (repo *canteenRepository) CreatePayment(_ context.Context, p canteen.Payment) (canteen.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p.ID = newID()
	repo.db.table[p.ID] = &p
	return p, nil
}

func (repo *canteenRepository) GetPaymentByID(_ context.Context, id string) (canteen.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return *p, nil
	}
	return canteen.Payment{}, canteen.ErrNotFound
}

func (repo *canteenRepository) QueryPayments(_ context.Context, from, to string) ([]canteen.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	payments := make([]canteen.Payment, 0)
	for _, p := range repo.db.table {
		if (from == "" || p.PaymentDate >= from) && (to == "" || p.PaymentDate <= to) {
			payments = append(payments, *p)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		if payments[i].PaymentDate != payments[j].PaymentDate {
			return payments[i].PaymentDate > payments[j].PaymentDate
		}
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})
	return payments, nil
}

func (repo *canteenRepository) DeletePayment(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return canteen.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
