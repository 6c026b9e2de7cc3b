package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/absence"
	"github.com/trezcool/masomo-absences/core/workflow"
)

var errAbsNotFoundInCtx = errors.New("absence object not found in echo.Context")

type absenceApi struct {
	workflow *workflow.Service
	ledger   *absence.Ledger
}

func registerAbsenceAPI(g *echo.Group, jwt echo.MiddlewareFunc, wf *workflow.Service, ledger *absence.Ledger) {
	api := absenceApi{workflow: wf, ledger: ledger}

	ag := g.Group("/absences", jwt)
	ag.POST("", api.submit)
	ag.GET("", api.query)

	// detail endpoints
	dg := ag.Group("/:id", ownerOrAdminMiddleware(ledger))
	dg.GET("", api.retrieve)
	dg.PUT("/status", api.setStatus, adminMiddleware())
	dg.POST("/resolve", api.resolve, adminMiddleware())
}

// Handlers

// submit records an absence for the token owner; admins may submit on behalf of anyone.
func (api *absenceApi) submit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data absence.NewAbsence
	if err = ctx.Bind(&data); err != nil {
		return core.NewValidationError(errors.New("invalid request body"))
	}
	data.PersonID = core.CleanString(data.PersonID)
	if data.PersonID == "" {
		data.PersonID = claims.Subject
	}
	if data.PersonID != claims.Subject && !claims.IsAdmin {
		return errHttpForbidden
	}

	res, err := api.workflow.SubmitAbsence(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting absence")
	}
	return ctx.JSON(http.StatusCreated, res)
}

// query lists absences; non-admins only see their own.
func (api *absenceApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(absence.Filter)
	if err = ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []absence.View{})
	}
	if !claims.IsAdmin {
		filter.PersonID = claims.Subject
	}
	views, err := api.ledger.List(ctx.Request().Context(), *filter, bindOrderings(ctx))
	if err != nil {
		return errors.Wrap(err, "listing absences")
	}
	if views == nil {
		views = []absence.View{}
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *absenceApi) retrieve(ctx echo.Context) error {
	rec, ok := ctx.Get(contextObjectKey).(absence.Record)
	if !ok {
		return errors.Wrap(errAbsNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *absenceApi) setStatus(ctx echo.Context) error {
	rec, ok := ctx.Get(contextObjectKey).(absence.Record)
	if !ok {
		return errors.Wrap(errAbsNotFoundInCtx, "retrieving object from context")
	}

	var data absence.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return core.NewValidationError(errors.New("invalid request body"))
	}
	rec, err := api.ledger.SetStatus(ctx.Request().Context(), rec.ID, data)
	if err != nil {
		return errors.Wrap(err, "setting absence status")
	}
	return ctx.JSON(http.StatusOK, rec)
}

// resolve retries substitute resolution of a teacher absence.
func (api *absenceApi) resolve(ctx echo.Context) error {
	rec, ok := ctx.Get(contextObjectKey).(absence.Record)
	if !ok {
		return errors.Wrap(errAbsNotFoundInCtx, "retrieving object from context")
	}

	res, err := api.workflow.Reresolve(ctx.Request().Context(), rec.ID)
	if err != nil {
		return errors.Wrap(err, "resolving substitute")
	}
	return ctx.JSON(http.StatusOK, res)
}
