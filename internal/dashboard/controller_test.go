package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quakepredictec/riesgo-dashboard/internal/models"
	"github.com/quakepredictec/riesgo-dashboard/internal/query"
	"github.com/quakepredictec/riesgo-dashboard/internal/risk"
	"github.com/quakepredictec/riesgo-dashboard/internal/source"
	"github.com/quakepredictec/riesgo-dashboard/internal/view"
)

const quitoPayload = `[
	{"canton":"Quito","probabilidad":0.85,"nivel_riesgo":"alto","color":"#dc2626","lat":-0.18,"lon":-78.47,"fecha":"2025-11-18"},
	{"canton":"Quito","probabilidad":0.10,"nivel_riesgo":"bajo","color":"#16a34a","lat":-0.18,"lon":-78.47,"fecha":"2025-11-18"},
	{"canton":"Guayaquil","probabilidad":0.72,"nivel_riesgo":"alto","color":"#dc2626","lat":-2.19,"lon":-79.89,"fecha":"2025-11-20"}
]`

func static(body string) source.Fetcher {
	return source.FetcherFunc(func(ctx context.Context) ([]byte, error) {
		return []byte(body), nil
	})
}

// swappable serves whatever body is set last
type swappable struct {
	mu   sync.Mutex
	body string
}

func (s *swappable) set(body string) {
	s.mu.Lock()
	s.body = body
	s.mu.Unlock()
}

func (s *swappable) Fetch(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return []byte(s.body), nil
}

func fixedNow() time.Time { return time.Date(2025, 11, 21, 15, 0, 0, 0, time.UTC) }

func newController(f source.Fetcher) *Controller {
	return New(f, view.NewMapRenderer(nil), Options{Now: fixedNow})
}

func TestRefreshBuildsAllViews(t *testing.T) {
	c := newController(static(quitoPayload))
	require.NoError(t, c.Refresh(context.Background()))

	snap := c.Snapshot()
	require.Len(t, snap.Store, 2)
	assert.Equal(t, 0.85, snap.Store[0].Probability)
	assert.Equal(t, models.FetchReady, snap.Status.State)

	alerts := c.Alerts()
	require.Equal(t, 2, alerts.Count)
	assert.Equal(t, "Quito", alerts.Alerts[0].LocationKey)
	assert.Equal(t, "Guayaquil", alerts.Alerts[1].LocationKey)
	assert.Equal(t, 2, alerts.Unread)

	table := c.Table(nil)
	assert.Equal(t, models.TableStatusReady, table.Status)
	assert.Equal(t, 2, table.Total)
	// newest first by default
	assert.Equal(t, "Guayaquil", table.Rows[0].Location)
	assert.Equal(t, "85.00%", table.Rows[1].ProbabilityPercentText)

	m, err := c.MapView("")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Count)
	require.NotNil(t, m.Bounds)

	sum := c.Summary()
	assert.Equal(t, 2, sum.Count)
	assert.Equal(t, 2, sum.Alerts)
	assert.Equal(t, 0.85, sum.Max)
	assert.Equal(t, map[string]int{"alto": 2}, sum.ByLevel)
}

func TestEmptyBackendResponse(t *testing.T) {
	c := newController(static(`[]`))
	require.NoError(t, c.Refresh(context.Background()))

	table := c.Table(nil)
	assert.Equal(t, models.TableStatusEmpty, table.Status)
	assert.Equal(t, models.NoPredictionsMessage, table.Message)
	assert.Empty(t, table.Rows)

	m, err := c.MapView("")
	require.NoError(t, err)
	assert.Zero(t, m.Count)
	assert.Nil(t, m.Bounds)

	assert.Zero(t, c.Alerts().Unread)
}

func TestLoadingBeforeFirstFetch(t *testing.T) {
	c := newController(static(`[]`))
	assert.Equal(t, models.TableStatusLoading, c.Table(nil).Status)
	assert.Equal(t, models.FetchIdle, c.Status().State)
}

func TestRefreshErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		fetcher source.Fetcher
		kind    string
	}{
		{
			name: "network",
			fetcher: source.FetcherFunc(func(ctx context.Context) ([]byte, error) {
				return nil, &source.NetworkError{URL: "http://backend", StatusCode: 500}
			}),
			kind: models.ErrorKindNetwork,
		},
		{
			name:    "malformed",
			fetcher: static(`{"canton":"Quito"}`),
			kind:    models.ErrorKindMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newController(tt.fetcher)
			err := c.Refresh(context.Background())
			require.Error(t, err)

			st := c.Status()
			assert.Equal(t, models.FetchError, st.State)
			assert.Equal(t, tt.kind, st.ErrorKind)

			table := c.Table(nil)
			assert.Equal(t, models.TableStatusError, table.Status)
			assert.NotEmpty(t, table.Message)
			assert.Empty(t, table.Rows)
		})
	}

	c := newController(static(`"nope"`))
	assert.ErrorIs(t, c.Refresh(context.Background()), risk.ErrMalformedPayload)
}

func TestCanceledRefreshKeepsStore(t *testing.T) {
	fetcher := source.FetcherFunc(func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch http://backend/riesgo-sismico: %w", err)
		}
		return []byte(quitoPayload), nil
	})
	c := newController(fetcher)
	require.NoError(t, c.Refresh(context.Background()))

	var events []Event
	c.Subscribe(func(ev Event) { events = append(events, ev) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, models.FetchReady, c.Status().State)
	table := c.Table(nil)
	assert.Equal(t, models.TableStatusReady, table.Status)
	assert.Len(t, table.Rows, 2)
	assert.Len(t, c.Snapshot().Store, 2)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventStatusChanged, last.Type)
	assert.Equal(t, models.FetchReady, last.Status.State)
}

func TestBackendTimeoutIsStillAnError(t *testing.T) {
	c := newController(source.FetcherFunc(func(ctx context.Context) ([]byte, error) {
		return nil, &source.NetworkError{URL: "http://backend", Err: context.DeadlineExceeded}
	}))
	err := c.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.FetchError, c.Status().State)
	assert.Equal(t, models.ErrorKindNetwork, c.Status().ErrorKind)
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	gates := []chan string{make(chan string), make(chan string)}
	var calls int32
	fetcher := source.FetcherFunc(func(ctx context.Context) ([]byte, error) {
		n := atomic.AddInt32(&calls, 1) - 1
		return []byte(<-gates[n]), nil
	})
	c := newController(fetcher)

	first := make(chan error, 1)
	go func() { first <- c.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() { second <- c.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, time.Millisecond)

	gates[1] <- `[{"canton":"Loja","probabilidad":0.2,"nivel_riesgo":"bajo","color":"green","lat":-4,"lon":-79.2}]`
	require.NoError(t, <-second)

	gates[0] <- quitoPayload
	assert.ErrorIs(t, <-first, ErrStaleResponse)

	snap := c.Snapshot()
	require.Len(t, snap.Store, 1)
	assert.Equal(t, "Loja", snap.Store[0].LocationKey)
	assert.Equal(t, uint64(2), snap.Status.Sequence)
	assert.Equal(t, models.FetchReady, snap.Status.State)
}

func TestUnreadBadge(t *testing.T) {
	f := &swappable{}
	f.set(`[{"canton":"Quito","probabilidad":0.85,"nivel_riesgo":"alto","color":"red","lat":0,"lon":0}]`)
	c := newController(f)

	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, 1, c.Unread())

	payload, err := c.Show(models.ViewAlerts)
	require.NoError(t, err)
	require.NotNil(t, payload.Alerts)
	assert.Zero(t, payload.Alerts.Unread)
	assert.Equal(t, 1, payload.Alerts.Count)
	assert.Equal(t, models.ViewAlerts, c.CurrentView())

	f.set(quitoPayload)
	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, 1, c.Unread(), "one new alert since last viewed")

	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, 1, c.Unread(), "unchanged alert set adds nothing")
}

func TestTableQueryTransitions(t *testing.T) {
	var store []string
	for i := 0; i < 30; i++ {
		store = append(store, fmt.Sprintf(`{"canton":"Canton %02d","probabilidad":0.%02d,"nivel_riesgo":"medio","color":"orange","lat":-1,"lon":-78}`, i, i))
	}
	body := "[" + strings.Join(store, ",") + "]"
	c := newController(static(body))
	require.NoError(t, c.Refresh(context.Background()))

	var events []string
	unsubscribe := c.Subscribe(func(ev Event) { events = append(events, ev.Type) })
	defer unsubscribe()

	page := c.Table(func(st *query.State) { st.SetPage(3) })
	assert.Len(t, page.Rows, 6)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrev)
	assert.Equal(t, 3, page.TotalPages)

	page = c.Table(func(st *query.State) { st.SetSearch("canton 1") })
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Total)

	page = c.Table(func(st *query.State) { st.ToggleSort(query.SortProbability) })
	assert.Equal(t, "Canton 10", page.Rows[0].Location)
	assert.Equal(t, "asc", page.SortDir)

	c.Table(nil)
	assert.Equal(t, []string{EventQueryChanged, EventQueryChanged, EventQueryChanged}, events)

	exported := c.ExportRecords()
	assert.Len(t, exported, 10)
}

type opCounter struct {
	mu  sync.Mutex
	ops []models.MapOp
}

func (s *opCounter) Enqueue(op models.MapOp) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op)
	return true
}

func TestRedrawSendsOneReplacement(t *testing.T) {
	var store []string
	for i := 0; i < 300; i++ {
		store = append(store, fmt.Sprintf(`{"canton":"Canton %03d","probabilidad":0.%02d,"nivel_riesgo":"medio","color":"orange","lat":-1,"lon":-78}`, i, i%100))
	}
	surface := &opCounter{}
	c := New(static("["+strings.Join(store, ",")+"]"), view.NewMapRenderer(surface), Options{Now: fixedNow})
	require.NoError(t, c.Refresh(context.Background()))

	require.Len(t, surface.ops, 1)
	assert.Equal(t, models.MapOpReplaceAll, surface.ops[0].Op)
	assert.Len(t, surface.ops[0].Markers, 300)

	_, err := c.MapView(models.MapLayerAlerts)
	require.NoError(t, err)
	require.Len(t, surface.ops, 2)
	assert.Equal(t, models.MapOpReplaceAll, surface.ops[1].Op)
	assert.Len(t, surface.ops[1].Markers, 90)
	assert.Equal(t, len(c.Alerts().Alerts), len(surface.ops[1].Markers))
}

func TestMapLayerAndFocus(t *testing.T) {
	body := `[
		{"canton":"Quito","probabilidad":0.85,"nivel_riesgo":"alto","color":"#dc2626","lat":-0.18,"lon":-78.47},
		{"canton":"Cuenca","probabilidad":0.20,"nivel_riesgo":"bajo","color":"#16a34a","lat":-2.9,"lon":-79.0}
	]`
	c := newController(static(body))
	require.NoError(t, c.Refresh(context.Background()))

	m, err := c.MapView(models.MapLayerAlerts)
	require.NoError(t, err)
	require.Equal(t, 1, m.Count)
	assert.Equal(t, "Quito", m.Markers[0].LocationKey)
	assert.Equal(t, models.MapLayerAlerts, m.Layer)

	m, err = c.MapView(models.MapLayerAll)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Count)

	_, err = c.MapView("satellite")
	assert.Error(t, err)

	_, err = c.Show(models.ViewData)
	require.NoError(t, err)

	focus, err := c.Focus(models.FocusRequest{LocationKey: "Cuenca"})
	require.NoError(t, err)
	assert.Equal(t, view.FocusZoom, focus.Zoom)
	assert.Equal(t, models.ViewMap, c.CurrentView())

	lat, lon := -0.18, -78.47
	focus, err = c.Focus(models.FocusRequest{Lat: &lat, Lon: &lon, Zoom: 11})
	require.NoError(t, err)
	assert.Equal(t, "Quito", focus.LocationKey)

	_, err = c.Focus(models.FocusRequest{LocationKey: "Tena"})
	assert.ErrorIs(t, err, view.ErrUnknownLocation)

	_, err = c.Focus(models.FocusRequest{})
	assert.Error(t, err)
}

func TestStoreReplacedEventCarriesNewAlerts(t *testing.T) {
	c := newController(static(quitoPayload))

	var got []Event
	c.Subscribe(func(ev Event) {
		if ev.Type == EventStoreReplaced {
			got = append(got, ev)
		}
	})

	require.NoError(t, c.Refresh(context.Background()))
	require.Len(t, got, 1)
	assert.Len(t, got[0].NewAlerts, 2)
	assert.Equal(t, 2, got[0].Records)

	require.NoError(t, c.Refresh(context.Background()))
	require.Len(t, got, 2)
	assert.Empty(t, got[1].NewAlerts)
}

func TestNoFetcherIsNetworkError(t *testing.T) {
	c := New(nil, nil, Options{})
	err := c.Refresh(context.Background())
	var netErr *source.NetworkError
	assert.True(t, errors.As(err, &netErr))
	assert.Equal(t, 0.70, c.Threshold())
}
