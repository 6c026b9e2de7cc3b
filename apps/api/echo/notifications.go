package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/notification"
	"github.com/trezcool/masomo-absences/core/roster"
)

type notificationApi struct {
	inbox      *notification.Service
	people     roster.Repository
	validate   *validator.Validate
	translator ut.Translator
}

func registerNotificationAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	inbox *notification.Service,
	people roster.Repository,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := notificationApi{
		inbox:      inbox,
		people:     people,
		validate:   validate,
		translator: translator,
	}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.query)
	ng.PUT("/:id/read", api.markRead)

	mg := g.Group("/me", jwt)
	mg.PUT("/push-handle", api.setPushHandle)
	mg.DELETE("/push-handle", api.clearPushHandle)
}

// Handlers

func (api *notificationApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(notification.QueryFilter)
	if err = ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []notification.Record{})
	}
	recs, err := api.inbox.List(ctx.Request().Context(), claims.Subject, *filter)
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	if recs == nil {
		recs = []notification.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rec, err := api.inbox.MarkRead(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return errHttpNotFound
		}
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *notificationApi) setPushHandle(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data PushHandleRequest
	if err = ctx.Bind(&data); err != nil {
		return core.NewValidationError(errors.New("invalid request body"))
	}
	if err = data.Validate(api.validate); err != nil {
		return core.TranslateValidationErrors(err, api.translator)
	}

	if err = api.people.SetPushHandle(ctx.Request().Context(), claims.Subject, data.PushHandle); err != nil {
		return errors.Wrap(err, "setting push handle")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationApi) clearPushHandle(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err = api.people.SetPushHandle(ctx.Request().Context(), claims.Subject, ""); err != nil {
		return errors.Wrap(err, "clearing push handle")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type PushHandleRequest struct {
	PushHandle string `json:"push_handle" validate:"required,notblank,max=4096"`
}

func (r *PushHandleRequest) Validate(validate *validator.Validate) error {
	r.PushHandle = core.CleanString(r.PushHandle)
	return validate.Struct(r)
}
