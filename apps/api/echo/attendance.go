package echoapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/attendance"
	"github.com/trezcool/staffroom/core/report"
	"github.com/trezcool/staffroom/core/teacher"
)

type attendanceApi struct {
	svc        *attendance.Service
	teacherSvc *teacher.Service
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *attendance.Service, teacherSvc *teacher.Service) {
	api := attendanceApi{svc: svc, teacherSvc: teacherSvc}

	ag := g.Group("/attendance", jwt, staffMiddleware())
	ag.GET("", api.query)
	ag.POST("", api.mark)
	ag.POST("/bulk", api.markBulk)
	ag.GET("/latest", api.latest)
	ag.GET("/stats/daily", api.dailyStats)
	ag.GET("/stats/weekly", api.weeklyStats)
	ag.GET("/summaries", api.summaries)
	ag.GET("/report.html", api.reportHTML)
	ag.GET("/export.xlsx", api.exportXLSX)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
}

func (api *attendanceApi) filter(ctx echo.Context) (attendance.QueryFilter, error) {
	var filter attendance.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return filter, errors.Wrap(err, "binding to QueryFilter")
	}
	return filter, nil
}

// Handlers

func (api *attendanceApi) query(ctx echo.Context) error {
	filter, err := api.filter(ctx)
	if err != nil {
		return err
	}
	recs, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	rec, err := api.svc.Mark(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *attendanceApi) markBulk(ctx echo.Context) error {
	var data BulkMarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkMarkRequest")
	}
	recs, err := api.svc.MarkBulk(ctx.Request().Context(), data.Records)
	if err != nil {
		return errors.Wrap(err, "marking attendance in bulk")
	}
	return ctx.JSON(http.StatusCreated, recs)
}

func (api *attendanceApi) latest(ctx echo.Context) error {
	recs, err := api.svc.LatestPerTeacher(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying latest attendance")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) dailyStats(ctx echo.Context) error {
	filter, err := api.filter(ctx)
	if err != nil {
		return err
	}
	recs, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, report.Daily(recs))
}

func (api *attendanceApi) weeklyStats(ctx echo.Context) error {
	filter, err := api.filter(ctx)
	if err != nil {
		return err
	}
	recs, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	breakdown := report.Weekly(recs)
	return ctx.JSON(http.StatusOK, WeeklyStatsResponse{Teachers: breakdown, Totals: report.TotalWeekly(breakdown)})
}

func (api *attendanceApi) summaries(ctx echo.Context) error {
	teachers, err := api.teacherSvc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	recs, err := api.svc.Query(ctx.Request().Context(), attendance.QueryFilter{Subject: attendance.SubjectTeacher})
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, report.TeacherSummaries(teachers, recs))
}

// reportHTML renders `?kind=all|teacher|week` over the records selected by `?from&to&teacher_id&week`.
func (api *attendanceApi) reportHTML(ctx echo.Context) error {
	kind := report.Kind(core.CleanString(ctx.QueryParam("kind"), true /* lower */))
	if kind == "" {
		kind = report.KindAll
	}
	if !kind.Valid() {
		return core.NewValidationError(nil, core.FieldError{Field: "kind", Error: "must be one of all, teacher, week"})
	}

	var filters report.Filters
	if err := ctx.Bind(&filters); err != nil {
		return errors.Wrap(err, "binding to Filters")
	}
	if kind == report.KindTeacher && core.CleanString(filters.TeacherID) == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: "this field is required"})
	}

	recs, err := api.svc.Query(ctx.Request().Context(), attendance.QueryFilter{
		Subject:   attendance.SubjectTeacher,
		TeacherID: filters.TeacherID,
		From:      filters.From,
		To:        filters.To,
		WeekNum:   filters.WeekNum,
	})
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return sendHTML(ctx, func(w io.Writer) error {
		return report.RenderAttendanceHTML(w, kind, filters, recs, NowFunc())
	})
}

func (api *attendanceApi) exportXLSX(ctx echo.Context) error {
	filter, err := api.filter(ctx)
	if err != nil {
		return err
	}
	recs, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return sendXLSX(ctx, "attendance", func(w io.Writer) error {
		return report.WriteAttendanceXLSX(w, recs)
	})
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	rec, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding attendance record by ID")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) update(ctx echo.Context) error {
	var data attendance.UpdateRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRecord")
	}
	rec, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating attendance record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

type (
	BulkMarkRequest struct {
		Records []attendance.NewRecord `json:"records"`
	}

	WeeklyStatsResponse struct {
		Teachers []report.WeeklyStats `json:"teachers"`
		Totals   report.WeeklyTotals  `json:"totals"`
	}
)
