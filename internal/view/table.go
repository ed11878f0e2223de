// Package view projects records into table rows and map markers.
package view

import (
	"github.com/shopspring/decimal"

	"github.com/quakepredictec/riesgo-dashboard/internal/models"
)

var hundred = decimal.NewFromInt(100)

// PercentText formats a probability as a percentage with the given decimals,
// e.g. 0.8512 -> "85.12%".
func PercentText(probability float64, places int32) string {
	return decimal.NewFromFloat(probability).Mul(hundred).StringFixed(places) + "%"
}

// RenderPage projects a page of records into table rows
func RenderPage(page []models.RiskRecord) []models.RowView {
	rows := make([]models.RowView, 0, len(page))
	for _, r := range page {
		rows = append(rows, models.RowView{
			Date:                   r.DateString(),
			Location:               r.LocationKey,
			ProbabilityPercentText: PercentText(r.Probability, 2),
			RiskLevel:              r.RiskLevel,
			Color:                  r.Color,
		})
	}
	return rows
}
