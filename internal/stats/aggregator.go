package stats

import (
	"fmt"
	"slices"

	"ngxreport/internal/parser/nginx"

	"github.com/pterm/pterm"
)

// DefaultMaxErrorRate is the parse-error percentage above which a log is rejected
const DefaultMaxErrorRate = 50.0

// RecordStream is a single-pass source of parsed records that also reports
// how many lines it has seen and parsed.
type RecordStream interface {
	Scan() bool
	Record() *nginx.Record
	Err() error
	LinesSeen() int
	LinesParsed() int
}

// Aggregator folds a record stream into per-request statistics
type Aggregator struct {
	maxErrorRate float64
	logger       *pterm.Logger
}

// NewAggregator creates an aggregator that rejects logs whose parse-error
// percentage exceeds maxErrorRate
func NewAggregator(maxErrorRate float64, logger *pterm.Logger) *Aggregator {
	return &Aggregator{
		maxErrorRate: maxErrorRate,
		logger:       logger,
	}
}

// MaxErrorRate returns the configured parse-error threshold in percent
func (a *Aggregator) MaxErrorRate() float64 {
	return a.maxErrorRate
}

// Aggregate drains the stream completely, then applies the error-rate gate
// and computes one Row per distinct request line.
func (a *Aggregator) Aggregate(stream RecordStream) (*Summary, error) {
	a.logger.Info("Processing requests data")

	aggregates := make(map[string]*Aggregate)
	order := []string{}
	summary := &Summary{}

	for stream.Scan() {
		record := stream.Record()

		agg, ok := aggregates[record.Request]
		if !ok {
			agg = &Aggregate{Request: record.Request}
			aggregates[record.Request] = agg
			order = append(order, record.Request)
		}
		agg.add(record.RequestTime)

		summary.TotalCount++
		summary.TotalTime += record.RequestTime
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("failed to drain log: %w", err)
	}

	summary.LinesSeen = stream.LinesSeen()
	summary.LinesParsed = stream.LinesParsed()

	if summary.LinesSeen == 0 {
		a.logger.Error("Empty log")
		summary.Outcome = OutcomeEmptyLog
		return summary, nil
	}

	summary.ErrorRate = float64(summary.LinesSeen-summary.LinesParsed) * 100 / float64(summary.LinesSeen)
	if summary.ErrorRate > a.maxErrorRate {
		a.logger.Error("Too many errors while parsing log",
			a.logger.Args(
				"parsed", summary.LinesParsed,
				"seen", summary.LinesSeen,
				"error_rate", summary.ErrorRate,
				"max_error_rate", a.maxErrorRate,
			))
		summary.Outcome = OutcomeErrorRateExceeded
		return summary, nil
	}

	a.logger.Info("Processed log lines",
		a.logger.Args("parsed", summary.LinesParsed, "seen", summary.LinesSeen))
	a.logger.Info("Calculating statistics", a.logger.Args("requests", len(order)))

	summary.Rows = make([]Row, 0, len(order))
	for _, request := range order {
		agg := aggregates[request]
		a.logger.Trace("Processing request", a.logger.Args("request", request))
		summary.Rows = append(summary.Rows, newRow(agg, summary.TotalCount, summary.TotalTime))
	}

	summary.Outcome = OutcomeOK
	return summary, nil
}

func newRow(agg *Aggregate, totalCount int, totalTime float64) Row {
	row := Row{
		Request:   agg.Request,
		Count:     agg.Count,
		CountPerc: float64(agg.Count) * 100 / float64(totalCount),
		TimeSum:   agg.TimeSum,
		TimeAvg:   Mean(agg.Times),
		TimeMax:   Max(agg.Times),
		TimeMed:   Median(agg.Times),
	}
	// all-zero request times would otherwise yield NaN, which JSON cannot encode
	if totalTime > 0 {
		row.TimePerc = agg.TimeSum * 100 / totalTime
	}
	return row
}

// Mean returns the arithmetic mean of values, 0 for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Max returns the largest value, 0 for an empty slice
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return slices.Max(values)
}

// Median returns the middle value of the sorted values, or the mean of the
// two middle values for an even count. values is not modified.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
