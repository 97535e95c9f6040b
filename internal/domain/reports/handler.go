package reports

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/domain/records"
)

// Handler provides HTTP handlers for the reports API.
type Handler struct {
	svc *Service
}

// NewHandler creates a new reports handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the reports API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/reports", h.ListReports)
	api.GET("/reports/:id", h.RunReport)
}

// ListReports returns all report definitions.
func (h *Handler) ListReports(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.List())
}

// RunReport evaluates a report using the query string as parameters.
func (h *Handler) RunReport(c echo.Context) error {
	params := map[string]string{
		ParamCondition:     c.QueryParam(ParamCondition),
		ParamTreatmentType: c.QueryParam(ParamTreatmentType),
	}

	report, err := h.svc.Run(c.Request().Context(), c.Param("id"), params)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func toHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrUnknownReport):
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	case errors.Is(err, ErrMissingParameter):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, records.ErrDataSourceUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "data source unavailable")
	case errors.Is(err, ErrDivisionByZero):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "report failed")
	}
}
