// Package export writes the filtered record set as the dashboard CSV report.
package export

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/quakepredictec/riesgo-dashboard/internal/models"
)

// Filename is the attachment name of the report
const Filename = "quakepredictec_reportes.csv"

// ContentType of the report
const ContentType = "text/csv; charset=utf-8"

// Header is the first line of the report
var Header = []string{"fecha", "ubicacion", "probabilidad_estimada_%", "nivel_probabilidad"}

// ErrNoRows is returned before anything is written when there is nothing to export
var ErrNoRows = errors.New("no rows to export")

var hundred = decimal.NewFromInt(100)

// WriteCSV writes the header and one row per record. Every field is quoted
// and each line ends with "\n".
func WriteCSV(w io.Writer, records []models.RiskRecord) error {
	if len(records) == 0 {
		return ErrNoRows
	}

	bw := bufio.NewWriter(w)
	if err := writeRow(bw, Header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.DateString(),
			r.LocationKey,
			decimal.NewFromFloat(r.Probability).Mul(hundred).StringFixed(2),
			r.RiskLevel,
		}
		if err := writeRow(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(quote(f)); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
