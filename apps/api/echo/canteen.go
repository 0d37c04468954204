package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/staffroom/core/canteen"
)

type canteenApi struct {
	svc *canteen.Service
}

func registerCanteenAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *canteen.Service) {
	api := canteenApi{svc: svc}

	cg := g.Group("/canteen", jwt, bursarMiddleware())
	cg.GET("/payments", api.query)
	cg.POST("/payments", api.create)
	cg.GET("/payments/:id", api.retrieve)
	cg.DELETE("/payments/:id", api.destroy)
	cg.GET("/stats", api.stats)
}

func (api *canteenApi) query(ctx echo.Context) error {
	payments, err := api.svc.Range(ctx.Request().Context(), ctx.QueryParam("from"), ctx.QueryParam("to"))
	if err != nil {
		return errors.Wrap(err, "querying canteen payments")
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *canteenApi) create(ctx echo.Context) error {
	var data canteen.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	p, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording canteen payment")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *canteenApi) retrieve(ctx echo.Context) error {
	p, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding canteen payment by ID")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *canteenApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting canteen payment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *canteenApi) stats(ctx echo.Context) error {
	totals, err := api.svc.Stats(ctx.Request().Context(), ctx.QueryParam("from"), ctx.QueryParam("to"))
	if err != nil {
		return errors.Wrap(err, "getting canteen stats")
	}
	return ctx.JSON(http.StatusOK, totals)
}
