package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/student"
)

type studentAPI struct {
	svc        *student.Service
	enrollment *enrollment.Service
}

func registerStudentAPI(g *echo.Group, svc *student.Service, enrollmentSvc *enrollment.Service) {
	api := studentAPI{svc: svc, enrollment: enrollmentSvc}

	sg := g.Group("/students")
	sg.GET("", api.query)
	sg.POST("", api.create, adminMiddleware())

	dg := sg.Group("/:pan")
	dg.GET("", api.retrieve)
	dg.GET("/class", api.currentClass)
	dg.PUT("/status", api.setStatus, adminMiddleware())
}

type statusChange struct {
	Status student.Status `json:"status"`
}

// Handlers

func (api *studentAPI) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	data.SchoolID = ctx.Param("school")

	std, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

// query filters by ?status= and ?search=
func (api *studentAPI) query(ctx echo.Context) error {
	filter := student.QueryFilter{
		Status: student.Status(strings.ToUpper(ctx.QueryParam("status"))),
		Search: ctx.QueryParam("search"),
	}
	students, err := api.svc.Query(ctx.Request().Context(), ctx.Param("school"), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentAPI) retrieve(ctx echo.Context) error {
	std, err := api.svc.Get(ctx.Request().Context(), ctx.Param("school"), ctx.Param("pan"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentAPI) currentClass(ctx echo.Context) error {
	cls, err := api.enrollment.CurrentClass(ctx.Request().Context(), ctx.Param("school"), ctx.Param("pan"))
	if err != nil {
		return errors.Wrap(err, "getting current class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *studentAPI) setStatus(ctx echo.Context) error {
	var data statusChange
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to statusChange")
	}

	std, err := api.svc.SetStatus(ctx.Request().Context(), ctx.Param("school"), ctx.Param("pan"), data.Status)
	if err != nil {
		return errors.Wrap(err, "setting student status")
	}
	return ctx.JSON(http.StatusOK, std)
}
