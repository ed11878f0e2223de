package dashboard

import (
	"fmt"

	"github.com/quakepredictec/riesgo-dashboard/internal/models"
)

// ViewPayload is the content of the visible component. Exactly one of
// Map, Table and Alerts is set.
type ViewPayload struct {
	View   string                 `json:"view"`
	Map    *models.MapResponse    `json:"map,omitempty"`
	Table  *models.TableResponse  `json:"table,omitempty"`
	Alerts *models.AlertsResponse `json:"alerts,omitempty"`
}

// Show makes v the visible view and returns its payload. Opening the alerts
// view clears the unread badge.
func (c *Controller) Show(v models.ViewState) (ViewPayload, error) {
	payload := ViewPayload{View: v.String()}

	switch v {
	case models.ViewMap:
		m, err := c.MapView("")
		if err != nil {
			return ViewPayload{}, err
		}
		payload.Map = &m
	case models.ViewData:
		t := c.Table(nil)
		payload.Table = &t
	case models.ViewAlerts:
		c.MarkAlertsRead()
		a := c.Alerts()
		payload.Alerts = &a
	default:
		return ViewPayload{}, fmt.Errorf("unknown view %s", v)
	}

	c.mu.Lock()
	c.state.View = v
	c.mu.Unlock()
	return payload, nil
}

// CurrentView returns the visible view
func (c *Controller) CurrentView() models.ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.View
}
