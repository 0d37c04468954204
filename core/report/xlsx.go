package report

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/staffroom/core/allowance"
	"github.com/trezcool/staffroom/core/attendance"
)

const (
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	allowanceSheet  = "Allowances"
	attendanceSheet = "Attendance"
)

var (
	allowanceHeaders = []string{
		"Week", "Date", "Total Sum", "Welfare", "Balance After Welfare", "Office", "Balance After Office",
		"Kitchen", "Balance After Kitchen", "Teachers", "Per Teacher", "JHS Teachers", "Per JHS Teacher",
	}
	attendanceHeaders = []string{"Teacher", "Department", "Date", "Week", "Check-In", "Check-Out", "Work Hours", "Status", "Remarks"}
)

func newWorkbook(sheet string, headers []string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return nil, err
	}
	return f, nil
}

// setRow writes `values` on row `row`, starting at column A.
func setRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	return f.SetSheetRow(sheet, cell, &values)
}

// WriteAllowanceXLSX writes one row per week followed by a totals row.
func WriteAllowanceXLSX(w io.Writer, recs []allowance.Record) error {
	f, err := newWorkbook(allowanceSheet, allowanceHeaders)
	if err != nil {
		return errors.Wrap(err, "creating allowance workbook")
	}
	defer f.Close()

	for i, r := range recs {
		err := setRow(f, allowanceSheet, i+2,
			r.WeekNumber, displayDate(r.CreatedAt),
			r.TotalSum.InexactFloat64(), r.Welfare.InexactFloat64(), r.BalanceAfterWelfare.InexactFloat64(),
			r.Office.InexactFloat64(), r.BalanceAfterOffice.InexactFloat64(),
			r.Kitchen.InexactFloat64(), r.BalanceAfterKitchen.InexactFloat64(),
			r.NumberOfTeachers, r.EachTeacher.Round(2).InexactFloat64(),
			r.NumberOfJHSTeachers, r.EachJHSTeacher.Round(2).InexactFloat64(),
		)
		if err != nil {
			return errors.Wrap(err, "writing allowance row")
		}
	}

	t := TotalAllowances(recs)
	err = setRow(f, allowanceSheet, len(recs)+2,
		"TOTALS", "",
		t.TotalAmount.InexactFloat64(), t.TotalWelfare.InexactFloat64(), "",
		t.TotalOffice.InexactFloat64(), "",
		t.TotalKitchen.InexactFloat64(), t.TotalBalance.InexactFloat64(),
		t.TotalTeachers,
	)
	if err != nil {
		return errors.Wrap(err, "writing allowance totals")
	}
	return errors.Wrap(f.Write(w), "writing allowance workbook")
}

// WriteAttendanceXLSX writes one row per attendance record.
func WriteAttendanceXLSX(w io.Writer, recs []attendance.Record) error {
	f, err := newWorkbook(attendanceSheet, attendanceHeaders)
	if err != nil {
		return errors.Wrap(err, "creating attendance workbook")
	}
	defer f.Close()

	for i, r := range recs {
		err := setRow(f, attendanceSheet, i+2,
			r.Fullname, r.Department, r.Date, r.WeekNum,
			r.CheckIn, r.CheckOut, r.WorkHours, string(r.Status), r.Remarks,
		)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("writing attendance row %d", i+1))
		}
	}
	return errors.Wrap(f.Write(w), "writing attendance workbook")
}

// XLSXFilename names an export file, e.g. "allowances_20240906_150405.xlsx".
func XLSXFilename(prefix string, generatedAt time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", prefix, generatedAt.Format("20060102_150405"))
}
