package report

import (
	"embed"
	"fmt"
	htmltmpl "html/template"
	"io"
	texttmpl "text/template"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/allowance"
	"github.com/trezcool/staffroom/core/attendance"
)

// Kind selects the layout of an attendance report.
type Kind string

const (
	KindAll     Kind = "all"
	KindTeacher Kind = "teacher"
	KindWeek    Kind = "week"

	dateDisplayLayout = "02/01/2006"
)

//go:embed templates
var templatesFS embed.FS

var (
	funcs = map[string]interface{}{
		"cedis": core.FormatCedis,
		"hours": func(f float64) string { return fmt.Sprintf("%.1f", f) },
		"date":  func(t time.Time) string { return displayDate(t) },
		"clock": func(s string) string { return orDash(s) },
	}

	htmlTemplates = htmltmpl.Must(htmltmpl.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.gohtml"))
	textTemplates = texttmpl.Must(texttmpl.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.txt"))
)

func (k Kind) Valid() bool {
	return k == KindAll || k == KindTeacher || k == KindWeek
}

func (k Kind) Title() string {
	switch k {
	case KindAll:
		return "All Teachers Attendance Report"
	case KindTeacher:
		return "Individual Teacher Attendance Report"
	case KindWeek:
		return "Weekly Attendance Report"
	default:
		return "Teacher Attendance Report"
	}
}

// Filters describes how the records of a report were selected.
type Filters struct {
	From      string `query:"from"`
	To        string `query:"to"`
	TeacherID string `query:"teacher_id"`
	WeekNum   int    `query:"week"`
}

type attendanceDoc struct {
	Title       string
	Filters     Filters
	Teacher     string
	Weekly      bool
	Records     []attendance.Record
	Daily       DailyStats
	Breakdown   []WeeklyStats
	WeekTotals  WeeklyTotals
	GeneratedAt time.Time
}

// RenderAttendanceHTML writes a printable attendance report.
// The "week" kind renders one row per teacher; the other kinds one row per record.
func RenderAttendanceHTML(w io.Writer, kind Kind, filters Filters, recs []attendance.Record, generatedAt time.Time) error {
	doc := attendanceDoc{
		Title:       kind.Title(),
		Filters:     filters,
		Weekly:      kind == KindWeek,
		Records:     recs,
		GeneratedAt: generatedAt,
	}
	if filters.TeacherID != "" && len(recs) > 0 {
		doc.Teacher = recs[0].Fullname
	}
	if doc.Weekly {
		doc.Breakdown = Weekly(recs)
		doc.WeekTotals = TotalWeekly(doc.Breakdown)
	} else {
		doc.Daily = Daily(recs)
	}
	return errors.Wrap(htmlTemplates.ExecuteTemplate(w, "attendance.gohtml", doc), "rendering attendance report")
}

type allowanceRow struct {
	allowance.Record
	Date string
}

type allowanceDoc struct {
	Rows        []allowanceRow
	Totals      AllowanceTotals
	GeneratedAt time.Time
}

func newAllowanceDoc(recs []allowance.Record, generatedAt time.Time) allowanceDoc {
	rows := make([]allowanceRow, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, allowanceRow{Record: r, Date: displayDate(r.CreatedAt)})
	}
	return allowanceDoc{Rows: rows, Totals: TotalAllowances(recs), GeneratedAt: generatedAt}
}

// RenderAllowanceHTML writes the printable allowance report of the given weeks.
func RenderAllowanceHTML(w io.Writer, recs []allowance.Record, generatedAt time.Time) error {
	doc := newAllowanceDoc(recs, generatedAt)
	return errors.Wrap(htmlTemplates.ExecuteTemplate(w, "allowance.gohtml", doc), "rendering allowance report")
}

// RenderAllowanceText writes the plain text allowance report shared with staff.
func RenderAllowanceText(w io.Writer, recs []allowance.Record, generatedAt time.Time) error {
	doc := newAllowanceDoc(recs, generatedAt)
	return errors.Wrap(textTemplates.ExecuteTemplate(w, "allowance.txt", doc), "rendering allowance report")
}

func displayDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(dateDisplayLayout)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
