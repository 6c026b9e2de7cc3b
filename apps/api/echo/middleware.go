package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/absence"
)

const contextObjectKey = "object"

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// ownerOrAdminMiddleware loads absence `:id` into the context for its owner and admins; anyone else gets a 404.
func ownerOrAdminMiddleware(ledger *absence.Ledger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			rec, err := ledger.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if core.IsNotFound(err) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "getting absence")
			}
			if rec.PersonID == claims.Subject || claims.IsAdmin {
				ctx.Set(contextObjectKey, rec)
				return next(ctx)
			}
			return errHttpNotFound
		}
	}
}
