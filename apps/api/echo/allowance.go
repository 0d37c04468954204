package echoapi

import (
	"io"
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/allowance"
	"github.com/trezcool/staffroom/core/report"
)

type allowanceApi struct {
	svc        *allowance.Service
	mailSvc    core.EmailService
	recipients []mail.Address
}

func registerAllowanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, conf *core.Config, svc *allowance.Service, mailSvc core.EmailService) {
	api := allowanceApi{svc: svc, mailSvc: mailSvc, recipients: conf.ReportRecipients}

	ag := g.Group("/allowances", jwt, staffMiddleware())
	ag.GET("", api.query)
	ag.GET("/welfare", api.welfare)
	ag.GET("/summary", api.summary)
	ag.GET("/weeks/:week", api.weeklyReport)
	ag.GET("/report.html", api.reportHTML)
	ag.GET("/report.txt", api.reportText)
	ag.GET("/export.xlsx", api.exportXLSX)
	ag.POST("/preview", api.preview)
	ag.GET("/:id", api.retrieve)

	// bursar endpoints
	ag.POST("", api.create, bursarMiddleware())
	ag.POST("/share", api.share, bursarMiddleware())
	ag.PUT("/:id", api.update, bursarMiddleware())
	ag.DELETE("/:id", api.destroy, bursarMiddleware())
}

// selectRecords picks the weeks a report is about:
// `?week=1&week=3`, else `?from=1&to=4`, else every week.
func (api *allowanceApi) selectRecords(ctx echo.Context) ([]allowance.Record, error) {
	weeks, err := intQueryParams(ctx, "week")
	if err != nil {
		return nil, err
	}
	if len(weeks) > 0 {
		return api.svc.ByWeeks(ctx.Request().Context(), weeks...)
	}

	from, err := intQueryParams(ctx, "from")
	if err != nil {
		return nil, err
	}
	to, err := intQueryParams(ctx, "to")
	if err != nil {
		return nil, err
	}
	if len(from) > 0 || len(to) > 0 {
		policy := api.svc.Calculator().Policy()
		span := [2]int{policy.MinWeek, policy.MaxWeek}
		if len(from) > 0 {
			span[0] = from[0]
		}
		if len(to) > 0 {
			span[1] = to[0]
		}
		return api.svc.QueryRange(ctx.Request().Context(), span[0], span[1])
	}
	return api.svc.All(ctx.Request().Context())
}

// Handlers

func (api *allowanceApi) query(ctx echo.Context) error {
	var pr core.PageRequest
	if err := ctx.Bind(&pr); err != nil {
		return errors.Wrap(err, "binding to PageRequest")
	}
	page, err := api.svc.Query(ctx.Request().Context(), pr)
	if err != nil {
		return errors.Wrap(err, "querying allowance records")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *allowanceApi) welfare(ctx echo.Context) error {
	var pr core.PageRequest
	if err := ctx.Bind(&pr); err != nil {
		return errors.Wrap(err, "binding to PageRequest")
	}
	page, err := api.svc.Welfare(ctx.Request().Context(), pr)
	if err != nil {
		return errors.Wrap(err, "querying welfare payments")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *allowanceApi) summary(ctx echo.Context) error {
	recs, err := api.selectRecords(ctx)
	if err != nil {
		return errors.Wrap(err, "selecting allowance records")
	}
	return ctx.JSON(http.StatusOK, AllowanceSummaryResponse{
		Summary: report.SummarizeAllowances(recs),
		Totals:  report.TotalAllowances(recs),
	})
}

func (api *allowanceApi) weeklyReport(ctx echo.Context) error {
	week, err := intParam(ctx, "week")
	if err != nil {
		return err
	}
	rep, err := api.svc.WeeklyReport(ctx.Request().Context(), week)
	if err != nil {
		return errors.Wrap(err, "getting weekly report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *allowanceApi) reportHTML(ctx echo.Context) error {
	recs, err := api.selectRecords(ctx)
	if err != nil {
		return errors.Wrap(err, "selecting allowance records")
	}
	return sendHTML(ctx, func(w io.Writer) error {
		return report.RenderAllowanceHTML(w, recs, NowFunc())
	})
}

func (api *allowanceApi) reportText(ctx echo.Context) error {
	recs, err := api.selectRecords(ctx)
	if err != nil {
		return errors.Wrap(err, "selecting allowance records")
	}
	return sendText(ctx, func(w io.Writer) error {
		return report.RenderAllowanceText(w, recs, NowFunc())
	})
}

func (api *allowanceApi) exportXLSX(ctx echo.Context) error {
	recs, err := api.selectRecords(ctx)
	if err != nil {
		return errors.Wrap(err, "selecting allowance records")
	}
	return sendXLSX(ctx, "allowances", func(w io.Writer) error {
		return report.WriteAllowanceXLSX(w, recs)
	})
}

func (api *allowanceApi) preview(ctx echo.Context) error {
	var form AllowanceForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to AllowanceForm")
	}
	data := form.Input()

	alloc, err := api.svc.Preview(data)
	resp := PreviewResponse{Allocation: alloc}
	if err != nil {
		vErr, ok := errors.Cause(err).(*core.ValidationError)
		if !ok {
			return errors.Wrap(err, "previewing allocation")
		}
		resp.Errors = make(map[string]string, len(vErr.Fields))
		for _, fErr := range vErr.Fields {
			resp.Errors[fErr.Field] = fErr.Error
		}
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *allowanceApi) retrieve(ctx echo.Context) error {
	rec, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding allowance record by ID")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *allowanceApi) create(ctx echo.Context) error {
	var form AllowanceForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to AllowanceForm")
	}
	data := form.Input()
	rec, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating allowance record")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *allowanceApi) update(ctx echo.Context) error {
	var form AllowanceForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to AllowanceForm")
	}
	data := form.Input()
	rec, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating allowance record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *allowanceApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting allowance record")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// share emails the text report of the selected weeks, with the spreadsheet attached.
func (api *allowanceApi) share(ctx echo.Context) error {
	var data ShareRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ShareRequest")
	}
	to, err := data.Recipients(api.recipients)
	if err != nil {
		return err
	}

	var recs []allowance.Record
	if len(data.Weeks) > 0 {
		recs, err = api.svc.ByWeeks(ctx.Request().Context(), data.Weeks...)
	} else {
		recs, err = api.svc.All(ctx.Request().Context())
	}
	if err != nil {
		return errors.Wrap(err, "selecting allowance records")
	}
	if len(recs) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "weeks", Error: "no allowance recorded for these weeks"})
	}

	msg, err := report.NewAllowanceEmail(to, recs, NowFunc())
	if err != nil {
		return errors.Wrap(err, "preparing allowance email")
	}
	api.mailSvc.SendMessages(msg)
	return ctx.JSON(http.StatusAccepted, ShareResponse{Weeks: len(recs), Recipients: len(to)})
}

type (
	// AllowanceForm is the allowance form as submitted. Amounts stay raw until Input parses them,
	// so a blank or non-numeric amount counts as zero instead of failing the request.
	AllowanceForm struct {
		WeekNumber          int                   `json:"week_number"`
		Classes             map[string]formAmount `json:"classes"`
		NumberOfTeachers    int                   `json:"number_of_teachers"`
		NumberOfJHSTeachers int                   `json:"number_of_jhs_teachers"`
		TotalSum            formAmount            `json:"total_sum"`
		Welfare             formAmount            `json:"welfare"`
		Office              formAmount            `json:"office"`
		Kitchen             formAmount            `json:"kitchen"`
	}

	AllowanceSummaryResponse struct {
		Summary report.AllowanceSummary `json:"summary"`
		Totals  report.AllowanceTotals  `json:"totals"`
	}

	// PreviewResponse holds the allocation of a form being filled, and what is still wrong with it.
	PreviewResponse struct {
		Allocation allowance.Allocation `json:"allocation"`
		Errors     map[string]string    `json:"errors,omitempty"`
	}

	ShareRequest struct {
		Weeks []int    `json:"weeks"`
		To    []string `json:"to"`
	}

	ShareResponse struct {
		Weeks      int `json:"weeks"`
		Recipients int `json:"recipients"`
	}
)

func (f AllowanceForm) Input() allowance.Input {
	classes := make(map[string]string, len(f.Classes))
	for k, v := range f.Classes {
		classes[k] = string(v)
	}
	return allowance.Input{
		WeekNumber:          f.WeekNumber,
		Classes:             allowance.ParseClasses(classes),
		NumberOfTeachers:    f.NumberOfTeachers,
		NumberOfJHSTeachers: f.NumberOfJHSTeachers,
		TotalSum:            allowance.ParseAmount(string(f.TotalSum)),
		Welfare:             allowance.ParseAmount(string(f.Welfare)),
		Office:              allowance.ParseAmount(string(f.Office)),
		Kitchen:             allowance.ParseAmount(string(f.Kitchen)),
	}
}

// Recipients parses the requested addresses, falling back to `defaults`.
func (sr ShareRequest) Recipients(defaults []mail.Address) ([]mail.Address, error) {
	if len(sr.To) == 0 {
		if len(defaults) == 0 {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "to", Error: "no recipients"})
		}
		return defaults, nil
	}
	addrs := make([]mail.Address, 0, len(sr.To))
	for _, s := range sr.To {
		addr, err := mail.ParseAddress(core.CleanString(s))
		if err != nil {
			return nil, core.NewValidationError(err, core.FieldError{Field: "to", Error: "invalid email address: " + s})
		}
		addrs = append(addrs, *addr)
	}
	return addrs, nil
}
