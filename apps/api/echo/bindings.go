package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-absences/core"
)

const orderingParam = "ordering"

// bindOrderings reads `?ordering=-date,person_name` (repeatable). A "-" prefix sorts descending;
// the first occurrence of a field wins.
func bindOrderings(ctx echo.Context) []core.DBOrdering {
	var (
		ords []core.DBOrdering
		seen = make(map[string]bool)
	)
	for _, val := range ctx.QueryParams()[orderingParam] {
		for _, field := range strings.Split(val, ",") {
			field = strings.TrimSpace(field)
			descending := strings.HasPrefix(field, "-")
			field = strings.TrimPrefix(field, "-")
			if field == "" || seen[field] {
				continue
			}
			seen[field] = true
			ords = append(ords, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
	return ords
}
