package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/school"
)

type schoolAPI struct {
	svc *school.Service
}

func registerSchoolAPI(g *echo.Group, svc *school.Service) {
	api := schoolAPI{svc: svc}
	g.GET("", api.retrieve)
}

func (api *schoolAPI) retrieve(ctx echo.Context) error {
	sch, err := api.svc.Get(ctx.Request().Context(), ctx.Param("school"))
	if err != nil {
		return errors.Wrap(err, "getting school")
	}
	return ctx.JSON(http.StatusOK, sch)
}
