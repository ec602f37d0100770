package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errOtherSchool   = echo.NewHTTPError(http.StatusForbidden, "token is not valid for this school")
)

// kindStatus maps the kinds of core errors to HTTP statuses.
var kindStatus = map[core.Kind]int{
	core.KindInvalidInput:        http.StatusBadRequest,
	core.KindNotFound:            http.StatusNotFound,
	core.KindAlreadyExists:       http.StatusConflict,
	core.KindDuplicateEnrollment: http.StatusConflict,
	core.KindDuplicateName:       http.StatusConflict,
	core.KindOverlappingRange:    http.StatusConflict,
	core.KindInvalidState:        http.StatusConflict,
	core.KindInvalidReference:    http.StatusUnprocessableEntity,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		var (
			httpErr *echo.HTTPError
			vErr    *core.ValidationError
			cErr    *core.Error
			vErrs   validator.ValidationErrors
		)
		switch {
		case errors.As(err, &httpErr):
			if httpErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = httpErr.Message
				break
			}
			if httpErr.Internal != nil {
				if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
					httpErr = herr
				}
			}
			code = httpErr.Code
			message = httpErr.Message
		case errors.As(err, &vErrs):
			fldErrs := make(map[string]string, len(vErrs))
			for _, fe := range vErrs {
				fldErrs[fe.Field()] = fe.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case errors.As(err, &vErr):
			if vErr.Fields != nil {
				fldErrs := make(map[string]string, len(vErr.Fields))
				for _, fErr := range vErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = vErr.Error()
			}
			code = http.StatusBadRequest
		case errors.As(err, &cErr):
			code = http.StatusInternalServerError
			if c, ok := kindStatus[cErr.Kind]; ok {
				code = c
			}
			msg := string(cErr.Kind)
			if cErr.Err != nil {
				msg = cErr.Err.Error()
			}
			message = echo.Map{"error": msg, "kind": cErr.Kind, "ids": cErr.IDMap()}
		case errors.Is(err, core.ErrLockTimeout):
			code = http.StatusServiceUnavailable
			message = "the resource is busy, try again later"
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var actor core.Actor
			if claims, claimsErr := getContextClaims(ctx); claimsErr == nil {
				actor = claims.Actor()
			}
			logger.Error(msg, errors.Wrap(err, msg), actor)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
