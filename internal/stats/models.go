package stats

// Aggregate accumulates the request times observed for one request line
type Aggregate struct {
	Request string
	Count   int
	TimeSum float64
	Times   []float64 // len(Times) == Count
}

func (a *Aggregate) add(requestTime float64) {
	a.Count++
	a.TimeSum += requestTime
	a.Times = append(a.Times, requestTime)
}

// Row is the per-request statistic rendered into the report
type Row struct {
	Request   string  `json:"request"`
	Count     int     `json:"count"`
	CountPerc float64 `json:"count_perc"`
	TimeSum   float64 `json:"time_sum"`
	TimePerc  float64 `json:"time_perc"`
	TimeAvg   float64 `json:"time_avg"`
	TimeMax   float64 `json:"time_max"`
	TimeMed   float64 `json:"time_med"`
}

// Outcome tells why an aggregation did or did not produce rows
type Outcome int

const (
	// OutcomeOK means rows were computed
	OutcomeOK Outcome = iota
	// OutcomeEmptyLog means the log had no non-blank lines
	OutcomeEmptyLog
	// OutcomeErrorRateExceeded means too many lines failed to parse
	OutcomeErrorRateExceeded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeEmptyLog:
		return "empty_log"
	case OutcomeErrorRateExceeded:
		return "error_rate_exceeded"
	default:
		return "unknown"
	}
}

// Summary is the result of draining one log
type Summary struct {
	Rows        []Row // first-seen order of request lines; empty unless Outcome is OutcomeOK
	LinesSeen   int
	LinesParsed int
	TotalCount  int
	TotalTime   float64
	ErrorRate   float64 // percent of non-blank lines that failed to parse
	Outcome     Outcome
}
