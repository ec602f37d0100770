package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/class"
)

const defaultSuggestions = 3

type classAPI struct {
	svc *class.Service
}

func registerClassAPI(g *echo.Group, svc *class.Service) {
	api := classAPI{svc: svc}

	cg := g.Group("/sessions/:session/classes")
	cg.GET("", api.query)
	cg.GET("/lookup", api.lookup)
	cg.GET("/suggest", api.suggest)
	cg.POST("", api.create, adminMiddleware())

	dg := g.Group("/classes/:id")
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy, adminMiddleware())
}

// Handlers

func (api *classAPI) create(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	data.SchoolID = ctx.Param("school")
	data.SessionID = ctx.Param("session")

	cls, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classAPI) query(ctx echo.Context) error {
	classes, err := api.svc.Query(ctx.Request().Context(), ctx.Param("school"), ctx.Param("session"))
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

// lookup resolves a free-form label (?label=10a) to the class of the session.
func (api *classAPI) lookup(ctx echo.Context) error {
	cls, err := api.svc.GetByLabel(ctx.Request().Context(), ctx.Param("school"), ctx.Param("session"), ctx.QueryParam("label"))
	if err != nil {
		return errors.Wrap(err, "looking up class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classAPI) suggest(ctx echo.Context) error {
	n, err := intQueryParam(ctx, "n", defaultSuggestions)
	if err != nil {
		return err
	}
	names, err := api.svc.Suggest(ctx.Request().Context(), ctx.Param("school"), ctx.Param("session"), ctx.QueryParam("label"), n)
	if err != nil {
		return errors.Wrap(err, "suggesting classes")
	}
	if names == nil {
		names = []string{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"suggestions": names})
}

func (api *classAPI) retrieve(ctx echo.Context) error {
	cls, err := api.svc.Get(ctx.Request().Context(), ctx.Param("school"), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classAPI) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("school"), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}
