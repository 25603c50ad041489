package nginx

import (
	"strconv"
	"strings"
)

// Record represents one line of the nginx "ui_short" access log format.
// Quoted fields keep their surrounding quotes and TimeLocal keeps its brackets,
// exactly as they appear in the log.
type Record struct {
	// Client info
	RemoteAddr string
	RemoteUser string
	TimeLocal  string

	// Request info
	Request string // request line incl. quotes, used as the aggregation key

	// Response info
	Status        int
	BodyBytesSent int64
	RequestTime   float64 // seconds

	// Headers
	Referer      string
	UserAgent    string
	ForwardedFor string
	RequestID    string
	RBUser       string
}

// String renders the record back into the access log format.
func (r *Record) String() string {
	var b strings.Builder
	b.WriteString(r.RemoteAddr)
	b.WriteString("  ")
	b.WriteString(r.RemoteUser)
	for _, field := range []string{
		r.TimeLocal,
		r.Request,
		strconv.Itoa(r.Status),
		strconv.FormatInt(r.BodyBytesSent, 10),
		r.Referer,
		r.UserAgent,
		r.ForwardedFor,
		r.RequestID,
		r.RBUser,
		strconv.FormatFloat(r.RequestTime, 'f', -1, 64),
	} {
		b.WriteByte(' ')
		b.WriteString(field)
	}
	return b.String()
}

// Method returns the HTTP method from the request line, or "" when the
// request line is not of the form "METHOD target PROTOCOL".
func (r *Record) Method() string {
	fields := strings.Fields(strings.Trim(r.Request, `"`))
	if len(fields) != 3 {
		return ""
	}
	return fields[0]
}

// Path returns the request target from the request line.
func (r *Record) Path() string {
	fields := strings.Fields(strings.Trim(r.Request, `"`))
	if len(fields) != 3 {
		return ""
	}
	return fields[1]
}
