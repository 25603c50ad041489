package report

import (
	"strconv"

	"ngxreport/internal/stats"

	"github.com/pterm/pterm"
)

// PrintSummary prints the n slowest requests (by total time) as a table on stdout
func PrintSummary(rows []stats.Row, n int) error {
	ranked := Rank(rows, n)
	if len(ranked) == 0 {
		return nil
	}

	data := pterm.TableData{
		{"Request", "Count", "Count %", "Time sum", "Time %", "Avg", "Max", "Median"},
	}
	for _, row := range ranked {
		data = append(data, []string{
			truncate(row.Request, 80),
			strconv.Itoa(row.Count),
			formatFloat(row.CountPerc),
			formatFloat(row.TimeSum),
			formatFloat(row.TimePerc),
			formatFloat(row.TimeAvg),
			formatFloat(row.TimeMax),
			formatFloat(row.TimeMed),
		})
	}

	return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
