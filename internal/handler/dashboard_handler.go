package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quakepredictec/riesgo-dashboard/internal/dashboard"
	"github.com/quakepredictec/riesgo-dashboard/internal/export"
	"github.com/quakepredictec/riesgo-dashboard/internal/metrics"
	"github.com/quakepredictec/riesgo-dashboard/internal/models"
	"github.com/quakepredictec/riesgo-dashboard/internal/query"
	"github.com/quakepredictec/riesgo-dashboard/internal/view"
	"github.com/quakepredictec/riesgo-dashboard/pkg/response"
)

// DashboardHandler serves the three views, refresh and export
type DashboardHandler struct {
	ctrl *dashboard.Controller
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(ctrl *dashboard.Controller) *DashboardHandler {
	return &DashboardHandler{ctrl: ctrl}
}

// Show handles GET /api/v1/views/:view
func (h *DashboardHandler) Show(c *gin.Context) {
	v, err := models.ParseViewState(c.Param("view"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}

	payload, err := h.ctrl.Show(v)
	if err != nil {
		response.InternalError(c, "Failed to render view", err)
		return
	}
	response.Success(c, payload)
}

// Table handles GET /api/v1/table
func (h *DashboardHandler) Table(c *gin.Context) {
	var filter models.TableFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	mutate, err := tableMutation(filter)
	if err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	response.Success(c, h.ctrl.Table(mutate))
}

// tableMutation validates the filter and turns it into query state
// transitions. Page is applied last so it survives the filter resets.
func tableMutation(f models.TableFilter) (func(*query.State), error) {
	var (
		sortKey, toggleKey query.SortKey
		dir                query.Direction
		err                error
	)
	if f.Sort != "" {
		if sortKey, err = query.ParseSortKey(f.Sort); err != nil {
			return nil, err
		}
	}
	if f.Dir != "" {
		if dir, err = query.ParseDirection(f.Dir); err != nil {
			return nil, err
		}
	}
	if f.Toggle != "" {
		if toggleKey, err = query.ParseSortKey(f.Toggle); err != nil {
			return nil, err
		}
	}
	for _, d := range []*string{f.From, f.To} {
		if d != nil && *d != "" {
			if _, err := time.Parse(models.DateLayout, *d); err != nil {
				return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", *d)
			}
		}
	}
	if f.Page < 0 {
		return nil, errors.New("page must be positive")
	}

	return func(st *query.State) {
		if f.Search != nil {
			st.SetSearch(*f.Search)
		}
		if f.RiskLevel != nil {
			st.SetRiskLevel(*f.RiskLevel)
		}
		if f.From != nil || f.To != nil {
			from, to := st.From, st.To
			if f.From != nil {
				from = *f.From
			}
			if f.To != nil {
				to = *f.To
			}
			st.SetDateRange(from, to)
		}
		if sortKey != "" || dir != "" {
			key, d := st.SortKey, st.SortDirection
			if sortKey != "" {
				key = sortKey
			}
			if dir != "" {
				d = dir
			}
			st.SetSort(key, d)
		}
		if toggleKey != "" {
			st.ToggleSort(toggleKey)
		}
		if f.Page > 0 {
			st.SetPage(f.Page)
		}
	}, nil
}

// Alerts handles GET /api/v1/alerts
func (h *DashboardHandler) Alerts(c *gin.Context) {
	response.Success(c, h.ctrl.Alerts())
}

// MarkAlertsRead handles POST /api/v1/alerts/read
func (h *DashboardHandler) MarkAlertsRead(c *gin.Context) {
	h.ctrl.MarkAlertsRead()
	response.Success(c, gin.H{"unread": h.ctrl.Unread()})
}

// Map handles GET /api/v1/map
func (h *DashboardHandler) Map(c *gin.Context) {
	var filter models.MapFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	m, err := h.ctrl.MapView(filter.Layer)
	if err != nil {
		response.BadRequest(c, "Invalid map layer", err)
		return
	}
	response.Success(c, m)
}

// Focus handles POST /api/v1/map/focus
func (h *DashboardHandler) Focus(c *gin.Context) {
	var req models.FocusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid focus request", err)
		return
	}

	focus, err := h.ctrl.Focus(req)
	if errors.Is(err, view.ErrUnknownLocation) {
		response.NotFound(c, err.Error())
		return
	}
	if err != nil {
		response.BadRequest(c, "Invalid focus request", err)
		return
	}
	response.Success(c, focus)
}

// Refresh handles POST /api/v1/refresh
func (h *DashboardHandler) Refresh(c *gin.Context) {
	// A client hanging up must not cancel the shared fetch.
	err := h.ctrl.Refresh(context.WithoutCancel(c.Request.Context()))
	switch {
	case err == nil, errors.Is(err, dashboard.ErrStaleResponse):
		response.Success(c, h.ctrl.Status())
	default:
		response.Error(c, http.StatusBadGateway, "Failed to fetch risk data", err)
	}
}

// Status handles GET /api/v1/status
func (h *DashboardHandler) Status(c *gin.Context) {
	response.Success(c, gin.H{
		"fetch":   h.ctrl.Status(),
		"view":    h.ctrl.CurrentView().String(),
		"unread":  h.ctrl.Unread(),
		"summary": h.ctrl.Summary(),
	})
}

// ExportCSV handles GET /api/v1/export.csv
func (h *DashboardHandler) ExportCSV(c *gin.Context) {
	var buf bytes.Buffer
	err := export.WriteCSV(&buf, h.ctrl.ExportRecords())
	if errors.Is(err, export.ErrNoRows) {
		metrics.CSVExportsTotal.WithLabelValues("empty").Inc()
		response.Error(c, http.StatusUnprocessableEntity, "No hay datos para exportar", err)
		return
	}
	if err != nil {
		metrics.CSVExportsTotal.WithLabelValues("error").Inc()
		response.InternalError(c, "Failed to export CSV", err)
		return
	}

	metrics.CSVExportsTotal.WithLabelValues("ok").Inc()
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
