package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core"
	reportsvc "github.com/trezcool/academia/services/report"
)

const (
	formatParam = "format"
	formatXLSX  = "xlsx"
)

// wantsXLSX reports whether the client asked for a spreadsheet, by ?format=xlsx or the Accept header.
func wantsXLSX(ctx echo.Context) bool {
	if strings.EqualFold(ctx.QueryParam(formatParam), formatXLSX) {
		return true
	}
	return strings.Contains(ctx.Request().Header.Get(echo.HeaderAccept), reportsvc.ContentType)
}

// intQueryParam returns the non-negative int query param name, or def.
func intQueryParam(ctx echo.Context, name string, def int) (int, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a non-negative number"})
	}
	return n, nil
}
