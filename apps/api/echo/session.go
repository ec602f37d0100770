package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/session"
)

type sessionAPI struct {
	svc *session.Service
}

func registerSessionAPI(g *echo.Group, svc *session.Service) {
	api := sessionAPI{svc: svc}

	sg := g.Group("/sessions")
	sg.GET("", api.query)
	sg.GET("/current", api.current)
	sg.POST("", api.create, adminMiddleware())
	sg.POST("/deactivate", api.deactivate, adminMiddleware())

	// detail endpoints
	dg := sg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.POST("/activate", api.activate, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
}

// Handlers

func (api *sessionAPI) create(ctx echo.Context) error {
	var data session.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	data.SchoolID = ctx.Param("school")

	sess, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *sessionAPI) query(ctx echo.Context) error {
	sessions, err := api.svc.Query(ctx.Request().Context(), ctx.Param("school"))
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []session.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *sessionAPI) current(ctx echo.Context) error {
	sess, err := api.svc.GetCurrent(ctx.Request().Context(), ctx.Param("school"))
	if err != nil {
		return errors.Wrap(err, "getting current session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionAPI) retrieve(ctx echo.Context) error {
	sess, err := api.svc.Get(ctx.Request().Context(), ctx.Param("school"), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionAPI) activate(ctx echo.Context) error {
	c := ctx.Request().Context()
	schoolID := ctx.Param("school")
	if err := api.svc.Activate(c, schoolID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "activating session")
	}
	sess, err := api.svc.GetCurrent(c, schoolID)
	if err != nil {
		return errors.Wrap(err, "getting current session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionAPI) deactivate(ctx echo.Context) error {
	if err := api.svc.DeactivateCurrent(ctx.Request().Context(), ctx.Param("school")); err != nil {
		return errors.Wrap(err, "deactivating current session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionAPI) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("school"), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return ctx.NoContent(http.StatusNoContent)
}
