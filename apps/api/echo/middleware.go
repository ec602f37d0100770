package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// schoolMiddleware rejects tokens issued for another school than the :school path param.
func schoolMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.SchoolID == "" || claims.SchoolID != ctx.Param("school") {
				return errOtherSchool
			}
			return next(ctx)
		}
	}
}

// roleMiddleware lets through the callers having any of roles.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.HasAnyRole(roles...) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(RoleAdmin)
}
