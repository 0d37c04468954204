// Package report rolls up allowance and attendance records already fetched from a store,
// and renders them for print, share and spreadsheet exports.
package report

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/trezcool/staffroom/core/allowance"
	"github.com/trezcool/staffroom/core/attendance"
	"github.com/trezcool/staffroom/core/teacher"
)

// AllowanceSummary is all zeros for an empty collection.
type AllowanceSummary struct {
	Count             int             `json:"count"`
	AvgTotalSum       decimal.Decimal `json:"avg_total_sum"`
	MaxTotalSum       decimal.Decimal `json:"max_total_sum"`
	MinTotalSum       decimal.Decimal `json:"min_total_sum"`
	AvgEachTeacher    decimal.Decimal `json:"avg_each_teacher"`
	AvgEachJHSTeacher decimal.Decimal `json:"avg_each_jhs_teacher"`
}

func SummarizeAllowances(recs []allowance.Record) AllowanceSummary {
	if len(recs) == 0 {
		return AllowanceSummary{}
	}

	var sum, each, eachJHS decimal.Decimal
	max, min := recs[0].TotalSum, recs[0].TotalSum
	for _, r := range recs {
		sum = sum.Add(r.TotalSum)
		each = each.Add(r.EachTeacher)
		eachJHS = eachJHS.Add(r.EachJHSTeacher)
		if r.TotalSum.GreaterThan(max) {
			max = r.TotalSum
		}
		if r.TotalSum.LessThan(min) {
			min = r.TotalSum
		}
	}
	n := decimal.NewFromInt(int64(len(recs)))
	return AllowanceSummary{
		Count:             len(recs),
		AvgTotalSum:       sum.Div(n),
		MaxTotalSum:       max,
		MinTotalSum:       min,
		AvgEachTeacher:    each.Div(n),
		AvgEachJHSTeacher: eachJHS.Div(n),
	}
}

// AllowanceTotals are the column totals of a set of weeks.
type AllowanceTotals struct {
	Weeks          int             `json:"weeks"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	AveragePerWeek decimal.Decimal `json:"average_per_week"`
	TotalWelfare   decimal.Decimal `json:"total_welfare"`
	TotalOffice    decimal.Decimal `json:"total_office"`
	TotalKitchen   decimal.Decimal `json:"total_kitchen"`
	TotalBalance   decimal.Decimal `json:"total_balance"`
	TotalTeachers  int             `json:"total_teachers"`
}

func TotalAllowances(recs []allowance.Record) AllowanceTotals {
	var t AllowanceTotals
	t.Weeks = len(recs)
	for _, r := range recs {
		t.TotalAmount = t.TotalAmount.Add(r.TotalSum)
		t.TotalWelfare = t.TotalWelfare.Add(r.Welfare)
		t.TotalOffice = t.TotalOffice.Add(r.Office)
		t.TotalKitchen = t.TotalKitchen.Add(r.Kitchen)
		t.TotalBalance = t.TotalBalance.Add(r.BalanceAfterKitchen)
		t.TotalTeachers += r.NumberOfTeachers
	}
	if t.Weeks > 0 {
		t.AveragePerWeek = t.TotalAmount.Div(decimal.NewFromInt(int64(t.Weeks)))
	}
	return t
}

// DailyStats counts records per status. LateCount includes the very late.
type DailyStats struct {
	TotalRecords   int     `json:"total_records"`
	PresentCount   int     `json:"present_count"`
	AbsentCount    int     `json:"absent_count"`
	LateCount      int     `json:"late_count"`
	VeryLateCount  int     `json:"very_late_count"`
	HalfDayCount   int     `json:"half_day_count"`
	UnknownCount   int     `json:"unknown_count"`
	TotalWorkHours float64 `json:"total_work_hours"`
	AvgWorkHours   float64 `json:"avg_work_hours"`
	AttendanceRate int     `json:"attendance_rate"` // % present
}

func Daily(recs []attendance.Record) DailyStats {
	var s DailyStats
	s.TotalRecords = len(recs)
	for _, r := range recs {
		switch r.Status {
		case attendance.StatusPresent:
			s.PresentCount++
		case attendance.StatusAbsent:
			s.AbsentCount++
		case attendance.StatusLate:
			s.LateCount++
		case attendance.StatusVeryLate:
			s.LateCount++
			s.VeryLateCount++
		case attendance.StatusHalfDay:
			s.HalfDayCount++
		default:
			s.UnknownCount++
		}
		s.TotalWorkHours += r.WorkHours
	}
	s.TotalWorkHours = round2(s.TotalWorkHours)
	if s.TotalRecords > 0 {
		s.AvgWorkHours = round2(s.TotalWorkHours / float64(s.TotalRecords))
	}
	s.AttendanceRate = rate(s.PresentCount, s.TotalRecords)
	return s
}

// WeeklyStats is the attendance of one teacher (or student) over a set of days.
type WeeklyStats struct {
	SubjectID      string  `json:"subject_id"`
	Fullname       string  `json:"fullname"`
	Department     string  `json:"department"`
	DaysTracked    int     `json:"days_tracked"`
	PresentDays    int     `json:"present_days"`
	TotalWorkHours float64 `json:"total_work_hours"`
	AvgWorkHours   float64 `json:"avg_work_hours"`
}

// Weekly groups records by subject, ordered by name then id.
func Weekly(recs []attendance.Record) []WeeklyStats {
	idx := make(map[string]int)
	stats := make([]WeeklyStats, 0)
	for _, r := range recs {
		id := r.SubjectID()
		i, ok := idx[id]
		if !ok {
			i = len(stats)
			idx[id] = i
			stats = append(stats, WeeklyStats{SubjectID: id, Fullname: r.Fullname, Department: r.Department})
		}
		s := &stats[i]
		s.DaysTracked++
		if r.Status == attendance.StatusPresent {
			s.PresentDays++
		}
		s.TotalWorkHours += r.WorkHours
	}
	for i := range stats {
		s := &stats[i]
		s.TotalWorkHours = round2(s.TotalWorkHours)
		s.AvgWorkHours = round2(s.TotalWorkHours / float64(s.DaysTracked))
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Fullname != stats[j].Fullname {
			return stats[i].Fullname < stats[j].Fullname
		}
		return stats[i].SubjectID < stats[j].SubjectID
	})
	return stats
}

// WeeklyTotals sums the rows of a weekly breakdown.
type WeeklyTotals struct {
	Teachers       int     `json:"teachers"`
	DaysTracked    int     `json:"days_tracked"`
	PresentDays    int     `json:"present_days"`
	TotalWorkHours float64 `json:"total_work_hours"`
	AvgWorkHours   float64 `json:"avg_work_hours"`
	AttendanceRate int     `json:"attendance_rate"`
}

func TotalWeekly(stats []WeeklyStats) WeeklyTotals {
	t := WeeklyTotals{Teachers: len(stats)}
	for _, s := range stats {
		t.DaysTracked += s.DaysTracked
		t.PresentDays += s.PresentDays
		t.TotalWorkHours += s.TotalWorkHours
	}
	t.TotalWorkHours = round2(t.TotalWorkHours)
	if t.DaysTracked > 0 {
		t.AvgWorkHours = round2(t.TotalWorkHours / float64(t.DaysTracked))
	}
	t.AttendanceRate = rate(t.PresentDays, t.DaysTracked)
	return t
}

// TeacherSummary is the attendance history of one teacher.
// BestCheckIn and WorstCheckIn are the earliest and latest recorded check-ins.
type TeacherSummary struct {
	TeacherID          string  `json:"teacher_id"`
	Fullname           string  `json:"fullname"`
	Department         string  `json:"department"`
	TotalDays          int     `json:"total_days"`
	PresentDays        int     `json:"present_days"`
	AbsentCount        int     `json:"absent_count"`
	LateCount          int     `json:"late_count"`
	HalfDayCount       int     `json:"half_day_count"`
	TotalWorkHours     float64 `json:"total_work_hours"`
	AvgWorkHours       float64 `json:"avg_work_hours"`
	BestCheckIn        string  `json:"best_check_in_time"`
	WorstCheckIn       string  `json:"worst_check_in_time"`
	LastAttendanceDate string  `json:"last_attendance_date"`
	Rating             int     `json:"attendance_rating"` // % present
}

// TeacherSummaries returns one summary per teacher, including those without any record,
// ordered by name then id. Records of unknown teachers are ignored.
func TeacherSummaries(teachers []teacher.Teacher, recs []attendance.Record) []TeacherSummary {
	idx := make(map[string]int, len(teachers))
	sums := make([]TeacherSummary, len(teachers))
	for i, t := range teachers {
		idx[t.ID] = i
		sums[i] = TeacherSummary{TeacherID: t.ID, Fullname: t.Fullname, Department: t.Department}
	}

	for _, r := range recs {
		i, ok := idx[r.TeacherID]
		if r.TeacherID == "" || !ok {
			continue
		}
		s := &sums[i]
		s.TotalDays++
		switch r.Status {
		case attendance.StatusPresent:
			s.PresentDays++
		case attendance.StatusAbsent:
			s.AbsentCount++
		case attendance.StatusLate, attendance.StatusVeryLate:
			s.LateCount++
		case attendance.StatusHalfDay:
			s.HalfDayCount++
		}
		s.TotalWorkHours += r.WorkHours
		if r.CheckIn != "" {
			if s.BestCheckIn == "" || r.CheckIn < s.BestCheckIn {
				s.BestCheckIn = r.CheckIn
			}
			if r.CheckIn > s.WorstCheckIn {
				s.WorstCheckIn = r.CheckIn
			}
		}
		if r.Date > s.LastAttendanceDate {
			s.LastAttendanceDate = r.Date
		}
	}

	for i := range sums {
		s := &sums[i]
		s.TotalWorkHours = round2(s.TotalWorkHours)
		if s.TotalDays > 0 {
			s.AvgWorkHours = round2(s.TotalWorkHours / float64(s.TotalDays))
		}
		s.Rating = rate(s.PresentDays, s.TotalDays)
	}

	sort.Slice(sums, func(i, j int) bool {
		if sums[i].Fullname != sums[j].Fullname {
			return sums[i].Fullname < sums[j].Fullname
		}
		return sums[i].TeacherID < sums[j].TeacherID
	})
	return sums
}

// rate returns n/total as a rounded percentage, 0 when total is 0.
func rate(n, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(n)*100/float64(total) + 0.5))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
