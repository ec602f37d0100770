package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/enrollment"
)

type enrollmentAPI struct {
	svc *enrollment.Service
}

func registerEnrollmentAPI(g *echo.Group, svc *enrollment.Service) {
	api := enrollmentAPI{svc: svc}

	eg := g.Group("/enrollments")
	eg.GET("", api.query)
	eg.POST("", api.create, adminMiddleware())
	eg.DELETE("/:id", api.destroy, adminMiddleware())
}

// Handlers

func (api *enrollmentAPI) create(ctx echo.Context) error {
	var data enrollment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	data.SchoolID = ctx.Param("school")

	enr, err := api.svc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *enrollmentAPI) query(ctx echo.Context) error {
	filter := enrollment.QueryFilter{
		SessionID:  ctx.QueryParam("session_id"),
		ClassID:    ctx.QueryParam("class_id"),
		StudentPAN: ctx.QueryParam("student_pan"),
	}
	enrs, err := api.svc.Query(ctx.Request().Context(), ctx.Param("school"), filter)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrs == nil {
		enrs = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *enrollmentAPI) destroy(ctx echo.Context) error {
	if err := api.svc.Withdraw(ctx.Request().Context(), ctx.Param("school"), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "withdrawing enrollment")
	}
	return ctx.NoContent(http.StatusNoContent)
}
