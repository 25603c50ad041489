package nginx

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/pterm/pterm"
)

// ErrLineMismatch is returned when a line does not follow the access log grammar.
var ErrLineMismatch = errors.New("line does not match access log format")

// Access log pattern for the nginx ui_short format:
// $remote_addr  $remote_user $http_x_real_ip [$time_local] "$request" $status $body_bytes_sent "$http_referer"
// "$http_user_agent" "$http_x_forwarded_for" "$http_X_REQUEST_ID" "$http_X_RB_USER" $request_time
//
// $http_x_real_ip is not captured separately; the greedy first group absorbs it
// together with the client address (everything before the double space).
const uiShortPattern = `^(.+)  (\S+) (\[.+\]) (".+") (\d+) (\d+) (".+") (".+") (".+") (".+") (".+") (\d+\.?\d*)`

// Parser parses nginx ui_short access log lines into Records
type Parser struct {
	logger    *pterm.Logger
	lineRegex *regexp.Regexp
}

// NewParser creates a new nginx parser instance
func NewParser(logger *pterm.Logger) *Parser {
	return &Parser{
		logger:    logger,
		lineRegex: regexp.MustCompile(uiShortPattern),
	}
}

// Name returns the parser identifier
func (p *Parser) Name() string {
	return "nginx-ui-short"
}

// CanParse reports whether the line matches the access log grammar
func (p *Parser) CanParse(line string) bool {
	if line == "" {
		return false
	}
	return p.lineRegex.MatchString(line)
}

// Parse parses a single access log line. The same line always yields an
// equal Record.
func (p *Parser) Parse(line string) (*Record, error) {
	if line == "" {
		return nil, fmt.Errorf("empty log line")
	}

	matches := p.lineRegex.FindStringSubmatch(line)
	if matches == nil {
		return nil, ErrLineMismatch
	}

	status, err := strconv.Atoi(matches[5])
	if err != nil {
		return nil, fmt.Errorf("invalid status %q: %w", matches[5], err)
	}
	bodyBytes, err := strconv.ParseInt(matches[6], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid body_bytes_sent %q: %w", matches[6], err)
	}
	requestTime, err := strconv.ParseFloat(matches[12], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid request_time %q: %w", matches[12], err)
	}

	record := &Record{
		RemoteAddr:    matches[1],
		RemoteUser:    matches[2],
		TimeLocal:     matches[3],
		Request:       matches[4],
		Status:        status,
		BodyBytesSent: bodyBytes,
		Referer:       matches[7],
		UserAgent:     matches[8],
		ForwardedFor:  matches[9],
		RequestID:     matches[10],
		RBUser:        matches[11],
		RequestTime:   requestTime,
	}

	p.logger.Trace("Successfully parsed access log line",
		p.logger.Args(
			"method", record.Method(),
			"path", record.Path(),
			"status", record.Status,
			"request_time", record.RequestTime,
		))

	return record, nil
}
