package echoapi

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/promotion"
	reportsvc "github.com/trezcool/academia/services/report"
)

type promotionAPI struct {
	svc      *promotion.Service
	executor *promotion.Executor
	logger   core.Logger
}

func registerPromotionAPI(g *echo.Group, svc *promotion.Service, executor *promotion.Executor, logger core.Logger) {
	api := promotionAPI{svc: svc, executor: executor, logger: logger}
	deciders := roleMiddleware(RoleTeacher, RoleAdmin)

	pg := g.Group("/promotions")
	pg.GET("", api.query)
	pg.POST("", api.assign, deciders)
	pg.POST("/execute", api.execute, adminMiddleware())

	dg := pg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, deciders)
	dg.DELETE("", api.destroy, deciders)
}

type executeRequest struct {
	FromSessionID string `json:"from_session_id"`
	ToSessionID   string `json:"to_session_id"`
}

// Handlers

func (api *promotionAPI) assign(ctx echo.Context) error {
	teacher, err := contextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	var data promotion.NewPromotion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPromotion")
	}
	data.SchoolID = ctx.Param("school")

	p, err := api.svc.Assign(ctx.Request().Context(), teacher, data)
	if err != nil {
		return errors.Wrap(err, "assigning promotion")
	}
	return ctx.JSON(http.StatusCreated, p)
}

// query filters by ?from_session_id=, ?student_pan= and ?status=
func (api *promotionAPI) query(ctx echo.Context) error {
	filter := promotion.QueryFilter{
		FromSessionID: ctx.QueryParam("from_session_id"),
		StudentPAN:    ctx.QueryParam("student_pan"),
		Status:        promotion.Status(strings.ToUpper(ctx.QueryParam("status"))),
	}
	ps, err := api.svc.Query(ctx.Request().Context(), ctx.Param("school"), filter)
	if err != nil {
		return errors.Wrap(err, "querying promotions")
	}
	if ps == nil {
		ps = []promotion.Promotion{}
	}
	return ctx.JSON(http.StatusOK, ps)
}

func (api *promotionAPI) retrieve(ctx echo.Context) error {
	p, err := api.svc.Get(ctx.Request().Context(), ctx.Param("school"), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting promotion")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *promotionAPI) update(ctx echo.Context) error {
	teacher, err := contextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	var data promotion.UpdatePromotion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePromotion")
	}

	p, err := api.svc.Update(ctx.Request().Context(), teacher, ctx.Param("school"), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating promotion")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *promotionAPI) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("school"), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting promotion")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// execute applies the pending decisions of a session and answers with the run report,
// as JSON or as a spreadsheet (see wantsXLSX).
func (api *promotionAPI) execute(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	var data executeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to executeRequest")
	}

	rep, err := api.executor.Execute(ctx.Request().Context(), actor, ctx.Param("school"), data.FromSessionID, data.ToSessionID)
	if err != nil {
		if rep.Processed() > 0 {
			api.logger.Error("promotion run interrupted after applying decisions", err, actor, map[string]interface{}{
				"school_id": rep.SchoolID,
				"promoted":  rep.Promoted,
				"graduated": rep.Graduated,
				"detained":  rep.Detained,
			})
		}
		return errors.Wrap(err, "executing promotions")
	}

	if !wantsXLSX(ctx) {
		return ctx.JSON(http.StatusOK, rep)
	}
	var buf bytes.Buffer
	if err := reportsvc.WriteXLSX(&buf, rep); err != nil {
		return errors.Wrap(err, "writing report")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+reportsvc.FileName(rep)+`"`)
	return ctx.Blob(http.StatusOK, reportsvc.ContentType, buf.Bytes())
}
