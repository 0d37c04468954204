package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/canteen"
	"github.com/trezcool/staffroom/core/student"
	"github.com/trezcool/staffroom/core/teacher"
)

// Teachers

type teacherRepository struct {
	db *sqlx.DB
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *sqlx.DB) teacher.Repository {
	return &teacherRepository{db: db}
}

type teacherRow struct {
	ID         string    `db:"id"`
	Fullname   string    `db:"fullname"`
	Department string    `db:"department"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (row teacherRow) teacher() teacher.Teacher {
	return teacher.Teacher{
		ID:         row.ID,
		Fullname:   row.Fullname,
		Department: row.Department,
		CreatedAt:  utc(row.CreatedAt),
		UpdatedAt:  utc(row.UpdatedAt),
	}
}

func (repo *teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	t.ID = uuid.New().String()
	q := `INSERT INTO teacher (id, fullname, department, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := repo.db.ExecContext(ctx, q, t.ID, t.Fullname, t.Department, utc(t.CreatedAt), utc(t.UpdatedAt)); err != nil {
		return teacher.Teacher{}, core.NewStoreError(err, "inserting teacher")
	}
	return t, nil
}

func (repo *teacherRepository) GetTeacherByID(ctx context.Context, id string) (teacher.Teacher, error) {
	if _, err := uuid.Parse(id); err != nil {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	var row teacherRow
	q := `SELECT id, fullname, department, created_at, updated_at FROM teacher WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return teacher.Teacher{}, storeErr(err, teacher.ErrNotFound, "finding teacher")
	}
	return row.teacher(), nil
}

func (repo *teacherRepository) QueryTeachers(ctx context.Context, prefix string) ([]teacher.Teacher, error) {
	q := `SELECT id, fullname, department, created_at, updated_at FROM teacher
		WHERE $1 = '' OR fullname ILIKE $1 || '%'
		ORDER BY fullname ASC, id ASC`
	var rows []teacherRow
	if err := repo.db.SelectContext(ctx, &rows, q, prefix); err != nil {
		return nil, core.NewStoreError(err, "querying teachers")
	}
	teachers := make([]teacher.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, row.teacher())
	}
	return teachers, nil
}

func (repo *teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	q := `UPDATE teacher SET fullname = $2, department = $3, updated_at = $4 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, t.ID, t.Fullname, t.Department, utc(t.UpdatedAt))
	if err != nil {
		return teacher.Teacher{}, core.NewStoreError(err, "updating teacher")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	return t, nil
}

func (repo *teacherRepository) DeleteTeacher(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return teacher.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM teacher WHERE id = $1`, id)
	if err != nil {
		return core.NewStoreError(err, "deleting teacher")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return teacher.ErrNotFound
	}
	return nil
}

// Students

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

type studentRow struct {
	ID         string    `db:"id"`
	Fullname   string    `db:"fullname"`
	Department string    `db:"department"`
	Gender     string    `db:"gender"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (row studentRow) student() student.Student {
	return student.Student{
		ID:         row.ID,
		Fullname:   row.Fullname,
		Department: row.Department,
		Gender:     row.Gender,
		CreatedAt:  utc(row.CreatedAt),
		UpdatedAt:  utc(row.UpdatedAt),
	}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	s.ID = uuid.New().String()
	q := `INSERT INTO student (id, fullname, department, gender, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := repo.db.ExecContext(ctx, q, s.ID, s.Fullname, s.Department, s.Gender, utc(s.CreatedAt), utc(s.UpdatedAt)); err != nil {
		return student.Student{}, core.NewStoreError(err, "inserting student")
	}
	return s, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return student.Student{}, student.ErrNotFound
	}
	var row studentRow
	q := `SELECT id, fullname, department, gender, created_at, updated_at FROM student WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return student.Student{}, storeErr(err, student.ErrNotFound, "finding student")
	}
	return row.student(), nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, department string) ([]student.Student, error) {
	q := `SELECT id, fullname, department, gender, created_at, updated_at FROM student
		WHERE $1 = '' OR department = $1
		ORDER BY fullname ASC, id ASC`
	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, q, department); err != nil {
		return nil, core.NewStoreError(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.student())
	}
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := `UPDATE student SET fullname = $2, department = $3, gender = $4, updated_at = $5 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, s.ID, s.Fullname, s.Department, s.Gender, utc(s.UpdatedAt))
	if err != nil {
		return student.Student{}, core.NewStoreError(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return s, nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return student.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM student WHERE id = $1`, id)
	if err != nil {
		return core.NewStoreError(err, "deleting student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.ErrNotFound
	}
	return nil
}

// Canteen

type canteenRepository struct {
	db *sqlx.DB
}

var _ canteen.Repository = (*canteenRepository)(nil) // interface compliance check

func NewCanteenRepository(db *sqlx.DB) canteen.Repository {
	return &canteenRepository{db: db}
}

type paymentRow struct {
	ID          string          `db:"id"`
	Department  string          `db:"department"`
	Amount      decimal.Decimal `db:"amount"`
	PaymentDate time.Time       `db:"payment_date"`
	Notes       string          `db:"notes"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (row paymentRow) payment() canteen.Payment {
	return canteen.Payment{
		ID:          row.ID,
		Department:  row.Department,
		Amount:      row.Amount,
		PaymentDate: row.PaymentDate.Format(dateLayout),
		Notes:       row.Notes,
		CreatedAt:   utc(row.CreatedAt),
		UpdatedAt:   utc(row.UpdatedAt),
	}
}

const paymentColumns = `id, department, amount, payment_date, notes, created_at, updated_at`

func (repo *canteenRepository) CreatePayment(ctx context.Context, p canteen.Payment) (canteen.Payment, error) {
	p.ID = uuid.New().String()
	q := `INSERT INTO canteen_payment (` + paymentColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := repo.db.ExecContext(ctx, q, p.ID, p.Department, p.Amount, p.PaymentDate, p.Notes, utc(p.CreatedAt), utc(p.UpdatedAt)); err != nil {
		return canteen.Payment{}, core.NewStoreError(err, "inserting canteen payment")
	}
	return p, nil
}

func (repo *canteenRepository) GetPaymentByID(ctx context.Context, id string) (canteen.Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return canteen.Payment{}, canteen.ErrNotFound
	}
	var row paymentRow
	q := `SELECT ` + paymentColumns + ` FROM canteen_payment WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return canteen.Payment{}, storeErr(err, canteen.ErrNotFound, "finding canteen payment")
	}
	return row.payment(), nil
}

func (repo *canteenRepository) QueryPayments(ctx context.Context, from, to string) ([]canteen.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM canteen_payment
		WHERE ($1 = '' OR payment_date >= $1::date) AND ($2 = '' OR payment_date <= $2::date)
		ORDER BY payment_date DESC, created_at DESC`
	var rows []paymentRow
	if err := repo.db.SelectContext(ctx, &rows, q, from, to); err != nil {
		return nil, core.NewStoreError(err, "querying canteen payments")
	}
	payments := make([]canteen.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.payment())
	}
	return payments, nil
}

func (repo *canteenRepository) DeletePayment(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return canteen.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM canteen_payment WHERE id = $1`, id)
	if err != nil {
		return core.NewStoreError(err, "deleting canteen payment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return canteen.ErrNotFound
	}
	return nil
}
