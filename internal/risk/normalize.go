// Package risk turns raw /riesgo-sismico payloads into the canonical record store.
package risk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/quakepredictec/riesgo-dashboard/internal/models"
	"github.com/quakepredictec/riesgo-dashboard/internal/spatial"
)

// ErrMalformedPayload is returned when the body is not a JSON array of objects.
var ErrMalformedPayload = errors.New("malformed risk payload")

// Decode parses a backend response body. Elements must all be JSON objects;
// field-level problems are left to Normalize.
func Decode(data []byte) ([]models.RawRiskItem, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected JSON array", ErrMalformedPayload)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	items := make([]models.RawRiskItem, 0, len(elems))
	for i, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrMalformedPayload, i)
		}
		var item models.RawRiskItem
		if err := json.Unmarshal(elem, &item); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrMalformedPayload, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Result carries the normalized store and the number of raw items discarded
type Result struct {
	Records    []models.RiskRecord
	Duplicates int
	Dropped    int
}

// Normalize converts raw items into canonical records. The first occurrence of
// a location wins; items missing a required field are dropped individually.
// now supplies the display date for items without fecha.
func Normalize(raw []models.RawRiskItem, now time.Time) Result {
	today := truncateDay(now)
	seen := make(map[string]struct{}, len(raw))
	res := Result{Records: make([]models.RiskRecord, 0, len(raw))}

	for i, item := range raw {
		rec, err := canonical(item, today)
		if err != nil {
			res.Dropped++
			log.WithField("index", i).WithError(err).Debug("dropping risk item")
			continue
		}
		if _, ok := seen[rec.LocationKey]; ok {
			res.Duplicates++
			continue
		}
		seen[rec.LocationKey] = struct{}{}
		res.Records = append(res.Records, rec)
	}
	return res
}

// Records is Normalize without the bookkeeping
func Records(raw []models.RawRiskItem, now time.Time) []models.RiskRecord {
	return Normalize(raw, now).Records
}

func canonical(item models.RawRiskItem, today time.Time) (models.RiskRecord, error) {
	switch {
	case item.Canton == nil:
		return models.RiskRecord{}, errors.New("missing canton")
	case item.Probabilidad == nil:
		return models.RiskRecord{}, errors.New("missing probabilidad")
	case item.NivelRiesgo == nil:
		return models.RiskRecord{}, errors.New("missing nivel_riesgo")
	case item.Color == nil:
		return models.RiskRecord{}, errors.New("missing color")
	case item.Lat == nil || item.Lon == nil:
		return models.RiskRecord{}, errors.New("missing coordinates")
	case !spatial.Valid(*item.Lat, *item.Lon):
		return models.RiskRecord{}, fmt.Errorf("coordinates out of range: %v, %v", *item.Lat, *item.Lon)
	}

	key := strings.TrimSpace(*item.Canton)
	if key == "" {
		return models.RiskRecord{}, errors.New("empty canton")
	}

	date := today
	if item.Fecha != nil && strings.TrimSpace(*item.Fecha) != "" {
		parsed, err := ParseDate(*item.Fecha)
		if err != nil {
			return models.RiskRecord{}, err
		}
		date = parsed
	}

	return models.RiskRecord{
		LocationKey: key,
		DisplayDate: date,
		Probability: *item.Probabilidad,
		RiskLevel:   *item.NivelRiesgo,
		Color:       *item.Color,
		Lat:         *item.Lat,
		Lon:         *item.Lon,
	}, nil
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and truncates to the calendar day
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(models.DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse fecha %q: %w", s, err)
	}
	return truncateDay(t), nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
