// Package reports renders analytics rollups into export artifacts and runs
// export jobs asynchronously against a blob store.
package reports

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"supportcore/internal/analytics"
	"supportcore/pkg/domain"
)

// Kind names an exportable rollup.
type Kind string

// Exportable report kinds.
const (
	KindOverview    Kind = "overview"
	KindAttribution Kind = "attribution"
	KindFunnel      Kind = "funnel"
)

// Format names an artifact encoding.
type Format string

// Supported artifact encodings.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

func (f Format) contentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// dataset is the rendered form of one report kind: a native value for JSON
// encoding plus a tabular projection for CSV.
type dataset struct {
	payload any
	columns []string
	rows    [][]string
}

func buildDataset(kind Kind, projects []domain.Project, items []domain.EvolutionItem, ledger domain.StageLedger) (dataset, error) {
	switch kind {
	case KindOverview:
		o := analytics.BuildOverview(projects, items, ledger)
		return dataset{
			payload: o,
			columns: []string{"metric", "value"},
			rows: [][]string{
				{"project_count", strconv.Itoa(o.ProjectCount)},
				{"estimated_value", formatFloat(o.EstimatedValue)},
				{"actual_value", formatFloat(o.ActualValue)},
				{"hours", formatFloat(o.Hours)},
				{"conversion_rate", formatFloat(o.ConversionRate)},
			},
		}, nil
	case KindAttribution:
		rollup := analytics.ProductLines(projects)
		rows := make([][]string, 0, len(rollup))
		for _, line := range rollup {
			rows = append(rows, []string{line.Name, formatFloat(line.Revenue), strconv.Itoa(line.Projects)})
		}
		return dataset{
			payload: rollup,
			columns: []string{"product_line", "revenue", "projects"},
			rows:    rows,
		}, nil
	case KindFunnel:
		funnel := analytics.Funnel(projects, ledger)
		rows := make([][]string, 0, len(funnel))
		for _, stage := range funnel {
			rows = append(rows, []string{stage.Stage, strconv.Itoa(stage.Count)})
		}
		return dataset{
			payload: funnel,
			columns: []string{"stage", "count"},
			rows:    rows,
		}, nil
	default:
		return dataset{}, fmt.Errorf("unknown report kind %q", kind)
	}
}

func (d dataset) encode(format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(d.payload, "", "  ")
	case FormatCSV:
		buf := &bytes.Buffer{}
		w := csv.NewWriter(buf)
		if err := w.Write(d.columns); err != nil {
			return nil, err
		}
		for _, row := range d.rows {
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
