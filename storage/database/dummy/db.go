// Package dummydb is an in-memory store, used in tests and in demo mode.
package dummydb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/staffroom/core/allowance"
	"github.com/trezcool/staffroom/core/attendance"
	"github.com/trezcool/staffroom/core/canteen"
	"github.com/trezcool/staffroom/core/student"
	"github.com/trezcool/staffroom/core/teacher"
	"github.com/trezcool/staffroom/core/user"
)

type (
	DB struct {
		user       *userTable
		allowance  *allowanceTable
		attendance *attendanceTable
		teacher    *teacherTable
		student    *studentTable
		canteen    *canteenTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	allowanceTable struct {
		sync.RWMutex
		table map[string]*allowance.Record
	}

	attendanceTable struct {
		sync.RWMutex
		table map[string]*attendance.Record
	}

	teacherTable struct {
		sync.RWMutex
		table map[string]*teacher.Teacher
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	canteenTable struct {
		sync.RWMutex
		table map[string]*canteen.Payment
	}
)

func Open() *DB {
	return &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		allowance:  &allowanceTable{table: make(map[string]*allowance.Record)},
		attendance: &attendanceTable{table: make(map[string]*attendance.Record)},
		teacher:    &teacherTable{table: make(map[string]*teacher.Teacher)},
		student:    &studentTable{table: make(map[string]*student.Student)},
		canteen:    &canteenTable{table: make(map[string]*canteen.Payment)},
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()

	db.allowance.Lock()
	db.allowance.table = make(map[string]*allowance.Record)
	db.allowance.Unlock()

	db.attendance.Lock()
	db.attendance.table = make(map[string]*attendance.Record)
	db.attendance.Unlock()

	db.teacher.Lock()
	db.teacher.table = make(map[string]*teacher.Teacher)
	db.teacher.Unlock()

	db.student.Lock()
	db.student.table = make(map[string]*student.Student)
	db.student.Unlock()

	db.canteen.Lock()
	db.canteen.table = make(map[string]*canteen.Payment)
	db.canteen.Unlock()
}

func newID() string {
	return uuid.New().String()
}
