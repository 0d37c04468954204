package report

import (
	"bytes"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/allowance"
)

const allowanceEmailTemplate = "allowance_report"

// AllowanceEmailCategory tags every allowance report share.
const AllowanceEmailCategory = "allowance-report"

// AllowanceEmail is the data of the allowance report email.
type AllowanceEmail struct {
	Weeks       int
	TotalAmount string
	Balance     string
	Report      string // plain text report
	GeneratedAt string
}

// NewAllowanceEmail builds the message sharing the allowance report of `recs` with `to`.
// The XLSX export is attached.
func NewAllowanceEmail(to []mail.Address, recs []allowance.Record, generatedAt time.Time) (*core.EmailMessage, error) {
	var text bytes.Buffer
	if err := RenderAllowanceText(&text, recs, generatedAt); err != nil {
		return nil, err
	}
	var xlsx bytes.Buffer
	if err := WriteAllowanceXLSX(&xlsx, recs); err != nil {
		return nil, err
	}

	totals := TotalAllowances(recs)
	msg := &core.EmailMessage{
		To:           to,
		Subject:      fmt.Sprintf("Friday allowance report (%d weeks)", totals.Weeks),
		TemplateName: allowanceEmailTemplate,
		Categories:   []string{AllowanceEmailCategory, fmt.Sprintf("weeks-%d", totals.Weeks)},
		TemplateData: AllowanceEmail{
			Weeks:       totals.Weeks,
			TotalAmount: core.FormatCedis(totals.TotalAmount),
			Balance:     core.FormatCedis(totals.TotalBalance),
			Report:      text.String(),
			GeneratedAt: displayDate(generatedAt),
		},
	}
	if err := msg.Attach(&xlsx, XLSXFilename("allowances", generatedAt), XLSXContentType); err != nil {
		return nil, errors.Wrap(err, "attaching allowance workbook")
	}
	return msg, nil
}
