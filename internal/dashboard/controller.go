// Package dashboard owns the application state shared by the table, map and
// alert views.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/quakepredictec/riesgo-dashboard/internal/alert"
	"github.com/quakepredictec/riesgo-dashboard/internal/metrics"
	"github.com/quakepredictec/riesgo-dashboard/internal/models"
	"github.com/quakepredictec/riesgo-dashboard/internal/query"
	"github.com/quakepredictec/riesgo-dashboard/internal/risk"
	"github.com/quakepredictec/riesgo-dashboard/internal/source"
	"github.com/quakepredictec/riesgo-dashboard/internal/stats"
	"github.com/quakepredictec/riesgo-dashboard/internal/view"
)

// ErrStaleResponse is returned by Refresh when a newer fetch started before
// this one finished. Its result was discarded.
var ErrStaleResponse = errors.New("stale response discarded")

// Event types delivered to subscribers
const (
	EventStoreReplaced = "store_replaced"
	EventStatusChanged = "status_changed"
	EventUnreadChanged = "unread_changed"
	EventQueryChanged  = "query_changed"
)

// Event is a change notification
type Event struct {
	Type      string              `json:"type"`
	Sequence  uint64              `json:"sequence,omitempty"`
	Records   int                 `json:"records,omitempty"`
	Unread    int                 `json:"unread"`
	Status    *models.FetchStatus `json:"status,omitempty"`
	NewAlerts []models.AlertEntry `json:"new_alerts,omitempty"`
}

// Options tune the controller
type Options struct {
	Threshold  float64
	PageSize   int
	TileLayers []models.TileLayer
	Now        func() time.Time
}

// AppState is the state every view reads. Store and Alerts are replaced,
// never mutated, so snapshots may be shared.
type AppState struct {
	Store    []models.RiskRecord
	Alerts   []models.AlertEntry
	Query    query.State
	Status   models.FetchStatus
	View     models.ViewState
	MapLayer string
}

// Controller is the single writer of AppState
type Controller struct {
	mu      sync.Mutex
	state   AppState
	issued  uint64
	unread  alert.Unread
	fetcher source.Fetcher
	mapView *view.MapRenderer
	opts    Options

	subMu   sync.RWMutex
	subs    map[int]func(Event)
	nextSub int
}

// New creates a controller. The map renderer receives every redraw.
func New(fetcher source.Fetcher, mapView *view.MapRenderer, opts Options) *Controller {
	if opts.Threshold <= 0 {
		opts.Threshold = alert.DefaultThreshold
	}
	if opts.PageSize < 1 {
		opts.PageSize = query.DefaultPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if mapView == nil {
		mapView = view.NewMapRenderer(nil)
	}

	return &Controller{
		state: AppState{
			Store:    []models.RiskRecord{},
			Alerts:   []models.AlertEntry{},
			Query:    query.NewState(opts.PageSize),
			Status:   models.FetchStatus{State: models.FetchIdle},
			View:     models.ViewMap,
			MapLayer: models.MapLayerAll,
		},
		fetcher: fetcher,
		mapView: mapView,
		opts:    opts,
		subs:    make(map[int]func(Event)),
	}
}

// Threshold returns the alert threshold in use
func (c *Controller) Threshold() float64 { return c.opts.Threshold }

// Subscribe registers fn for change notifications. fn runs on the writer's
// goroutine after the state is published and must not block.
func (c *Controller) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) emit(ev Event) {
	c.subMu.RLock()
	fns := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Refresh fetches a new snapshot and replaces the store. Each call takes a
// new sequence number; a response whose sequence is no longer the latest is
// dropped and ErrStaleResponse is returned. When ctx ends before the fetch
// completes the previous status is restored and ctx.Err() is returned.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.issued++
	seq := c.issued
	prev := c.state.Status
	status := models.FetchStatus{State: models.FetchLoading, Sequence: seq, UpdatedAt: c.opts.Now()}
	c.state.Status = status
	c.mu.Unlock()
	c.emit(Event{Type: EventStatusChanged, Sequence: seq, Unread: c.unread.Count(), Status: &status})

	logger := log.WithFields(log.Fields{"cycle": uuid.NewString(), "seq": seq})
	logger.Info("fetching risk snapshot")

	start := time.Now()
	result, err := c.load(ctx)
	metrics.FetchDurationSeconds.Observe(time.Since(start).Seconds())

	c.mu.Lock()
	if seq != c.issued {
		c.mu.Unlock()
		metrics.StaleResponsesTotal.Inc()
		metrics.FetchTotal.WithLabelValues("stale").Inc()
		logger.Warn("discarding stale response")
		return ErrStaleResponse
	}

	if err != nil && ctx.Err() != nil {
		// The caller gave up; the backend did not fail. Keep what was there.
		c.state.Status = prev
		status = prev
		c.mu.Unlock()

		metrics.FetchTotal.WithLabelValues("canceled").Inc()
		logger.WithError(err).Warn("risk snapshot fetch canceled")
		c.emit(Event{Type: EventStatusChanged, Sequence: seq, Unread: c.unread.Count(), Status: &status})
		return ctx.Err()
	}

	if err != nil {
		status = models.FetchStatus{
			State:     models.FetchError,
			ErrorKind: errorKind(err),
			Message:   err.Error(),
			Sequence:  seq,
			UpdatedAt: c.opts.Now(),
		}
		c.state.Status = status
		c.mu.Unlock()

		metrics.FetchTotal.WithLabelValues(status.ErrorKind).Inc()
		logger.WithError(err).WithField("kind", status.ErrorKind).Error("risk snapshot fetch failed")
		c.emit(Event{Type: EventStatusChanged, Sequence: seq, Unread: c.unread.Count(), Status: &status})
		return err
	}

	prevAlerts := c.state.Alerts
	alerts := alert.Classify(result.Records, c.opts.Threshold)
	c.state.Store = result.Records
	c.state.Alerts = alerts
	status = models.FetchStatus{State: models.FetchReady, Sequence: seq, UpdatedAt: c.opts.Now()}
	c.state.Status = status
	c.redrawLocked()
	unread := c.unread.Observe(len(alerts))
	c.mu.Unlock()

	metrics.FetchTotal.WithLabelValues("ok").Inc()
	metrics.Records.Set(float64(len(result.Records)))
	metrics.Alerts.Set(float64(len(alerts)))
	if dropped := result.Dropped + result.Duplicates; dropped > 0 {
		metrics.DroppedRecordsTotal.Add(float64(dropped))
	}
	logger.WithFields(log.Fields{
		"records":    len(result.Records),
		"alerts":     len(alerts),
		"dropped":    result.Dropped,
		"duplicates": result.Duplicates,
	}).Info("store replaced")

	c.emit(Event{
		Type:      EventStoreReplaced,
		Sequence:  seq,
		Records:   len(result.Records),
		Unread:    unread,
		Status:    &status,
		NewAlerts: alert.NewEntries(prevAlerts, alerts),
	})
	return nil
}

func (c *Controller) load(ctx context.Context) (risk.Result, error) {
	if c.fetcher == nil {
		return risk.Result{}, &source.NetworkError{Err: errors.New("no risk source configured")}
	}
	body, err := c.fetcher.Fetch(ctx)
	if err != nil {
		return risk.Result{}, err
	}
	raw, err := risk.Decode(body)
	if err != nil {
		return risk.Result{}, err
	}
	return risk.Normalize(raw, c.opts.Now()), nil
}

func errorKind(err error) string {
	if errors.Is(err, risk.ErrMalformedPayload) {
		return models.ErrorKindMalformed
	}
	return models.ErrorKindNetwork
}

// redrawLocked sends the markers of the current layer to the map as one
// replacement
func (c *Controller) redrawLocked() {
	if c.state.MapLayer != models.MapLayerAlerts {
		c.mapView.ReplaceAll(c.state.Store)
		return
	}

	alerting := make(map[string]struct{}, len(c.state.Alerts))
	for _, a := range c.state.Alerts {
		alerting[a.LocationKey] = struct{}{}
	}
	records := make([]models.RiskRecord, 0, len(c.state.Alerts))
	for _, r := range c.state.Store {
		if _, ok := alerting[r.LocationKey]; ok {
			records = append(records, r)
		}
	}
	c.mapView.ReplaceAll(records)
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() AppState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns the latest fetch status
func (c *Controller) Status() models.FetchStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Status
}

// Summary describes the probabilities of the current store
func (c *Controller) Summary() stats.Summary {
	c.mu.Lock()
	store := c.state.Store
	c.mu.Unlock()
	return stats.Summarize(store, c.opts.Threshold)
}

// Unread returns the alert badge count
func (c *Controller) Unread() int { return c.unread.Count() }

// Table applies mutate to the query state, if given, and renders the
// resulting page.
func (c *Controller) Table(mutate func(*query.State)) models.TableResponse {
	c.mu.Lock()
	changed := false
	if mutate != nil {
		before := c.state.Query
		mutate(&c.state.Query)
		changed = before != c.state.Query
	}
	st := c.state.Query
	store := c.state.Store
	status := c.state.Status
	c.mu.Unlock()

	if changed {
		c.emit(Event{Type: EventQueryChanged, Unread: c.unread.Count()})
	}

	resp := models.TableResponse{
		Rows:     []models.RowView{},
		Page:     st.PageIndex,
		PageSize: st.PageSize,
		SortKey:  string(st.SortKey),
		SortDir:  string(st.SortDirection),
		Search:   st.SearchText,
	}

	switch {
	case status.State == models.FetchError:
		resp.Status = models.TableStatusError
		resp.Message = status.Message
		return resp
	case len(store) == 0 && (status.State == models.FetchLoading || status.State == models.FetchIdle):
		resp.Status = models.TableStatusLoading
		return resp
	case len(store) == 0:
		resp.Status = models.TableStatusEmpty
		resp.Message = models.NoPredictionsMessage
		return resp
	}

	res := query.Run(store, st)
	resp.Rows = view.RenderPage(res.Page)
	resp.Total = res.Total
	resp.TotalPages = res.TotalPages()
	resp.HasNext = res.HasNext()
	resp.HasPrev = res.HasPrev()
	resp.Status = models.TableStatusReady
	if status.State == models.FetchLoading {
		resp.Status = models.TableStatusLoading
	}
	return resp
}

// Alerts returns the current alert feed and badge
func (c *Controller) Alerts() models.AlertsResponse {
	c.mu.Lock()
	alerts := c.state.Alerts
	status := c.state.Status
	c.mu.Unlock()

	resp := models.AlertsResponse{
		Alerts:    alerts,
		Count:     len(alerts),
		Unread:    c.unread.Count(),
		Threshold: c.opts.Threshold,
		Status:    viewStatus(status),
	}
	if status.State == models.FetchError {
		resp.Message = status.Message
	}
	return resp
}

// MarkAlertsRead resets the unread badge
func (c *Controller) MarkAlertsRead() {
	c.unread.Reset()
	c.emit(Event{Type: EventUnreadChanged, Unread: 0})
}

// MapView returns the markers of the requested layer. Switching layer
// redraws the map.
func (c *Controller) MapView(layer string) (models.MapResponse, error) {
	switch layer {
	case "":
	case models.MapLayerAll, models.MapLayerAlerts:
		c.mu.Lock()
		if c.state.MapLayer != layer {
			c.state.MapLayer = layer
			c.redrawLocked()
		}
		c.mu.Unlock()
	default:
		return models.MapResponse{}, fmt.Errorf("unknown map layer %q", layer)
	}

	c.mu.Lock()
	status := c.state.Status
	current := c.state.MapLayer
	c.mu.Unlock()

	markers := c.mapView.Markers()
	resp := models.MapResponse{
		Markers:    markers,
		Count:      len(markers),
		Bounds:     c.mapView.Bounds(),
		Center:     c.mapView.Center(),
		TileLayers: c.opts.TileLayers,
		Layer:      current,
		Status:     viewStatus(status),
	}
	if status.State == models.FetchError {
		resp.Message = status.Message
	}
	return resp, nil
}

// Focus centers the map on a location key or a coordinate and switches to
// the map view.
func (c *Controller) Focus(req models.FocusRequest) (models.MapFocus, error) {
	var (
		focus models.MapFocus
		err   error
	)
	switch {
	case req.LocationKey != "":
		focus, err = c.mapView.FocusLocation(req.LocationKey, req.Zoom)
	case req.Lat != nil && req.Lon != nil:
		focus = c.mapView.Focus(*req.Lat, *req.Lon, req.Zoom)
	default:
		err = errors.New("focus needs a location key or lat/lon")
	}
	if err != nil {
		return models.MapFocus{}, err
	}

	c.mu.Lock()
	c.state.View = models.ViewMap
	c.mu.Unlock()
	return focus, nil
}

// ExportRecords returns every record matching the current filters in the
// current sort order, across all pages.
func (c *Controller) ExportRecords() []models.RiskRecord {
	c.mu.Lock()
	st := c.state.Query
	store := c.state.Store
	c.mu.Unlock()
	return query.All(store, st)
}

func viewStatus(s models.FetchStatus) string {
	switch s.State {
	case models.FetchError:
		return models.TableStatusError
	case models.FetchLoading, models.FetchIdle:
		return models.TableStatusLoading
	}
	return models.TableStatusReady
}
