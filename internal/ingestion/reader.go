package ingestion

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"ngxreport/internal/discovery"
	"ngxreport/internal/parser/nginx"

	"github.com/klauspost/compress/gzip"
	"github.com/pterm/pterm"
)

// maxLineSize bounds the part of a line that is kept for parsing. Longer
// lines are consumed up to the next newline and counted as unparsed.
const maxLineSize = 1024 * 1024

// linePreviewSize is how much of an over-long line is logged
const linePreviewSize = 200

// LogReader streams parsed records out of a single access log file.
// It is a single-pass, forward-only reader: once Scan returns false the file
// must be reopened to read it again.
type LogReader struct {
	filePath string
	file     *os.File
	gz       *gzip.Reader
	src      *bufio.Reader
	line     []byte
	parser   *nginx.Parser
	logger   *pterm.Logger

	record      *nginx.Record
	linesSeen   int
	linesParsed int
	err         error
}

// OpenLogFile opens a located log file, transparently decompressing gzip files
func OpenLogFile(logFile *discovery.LogFile, parser *nginx.Parser, logger *pterm.Logger) (*LogReader, error) {
	file, err := os.Open(logFile.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	r := &LogReader{
		filePath: logFile.Path,
		file:     file,
		parser:   parser,
		logger:   logger,
	}

	var src io.Reader = file
	if logFile.Compressed {
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", logFile.Path, err)
		}
		r.gz = gz
		src = gz
	}

	r.src = bufio.NewReaderSize(src, 64*1024)

	logger.Debug("Opened log file",
		logger.Args("path", logFile.Path, "compressed", logFile.Compressed))

	return r, nil
}

// Scan advances to the next successfully parsed record. Blank lines are
// skipped without being counted; lines that fail to parse or exceed
// maxLineSize are counted, logged and skipped.
func (r *LogReader) Scan() bool {
	r.record = nil
	if r.err != nil {
		return false
	}

	for {
		raw, truncated, err := r.readLine()
		if err == io.EOF {
			return false
		}
		if err != nil {
			r.logger.WithCaller().Error("Read error while reading log file",
				r.logger.Args("path", r.filePath, "error", err))
			r.err = fmt.Errorf("failed to read %s: %w", r.filePath, err)
			return false
		}

		if truncated {
			r.linesSeen++
			r.logger.Warn("Skipping over-long log line",
				r.logger.Args("path", r.filePath, "max_bytes", maxLineSize, "preview", string(raw[:linePreviewSize])))
			continue
		}

		line := strings.TrimSpace(string(raw))
		if line == "" {
			continue
		}

		r.linesSeen++

		record, err := r.parser.Parse(line)
		if err != nil {
			r.logger.Warn("Failed to parse log line", r.logger.Args("line", line))
			continue
		}

		r.linesParsed++
		r.record = record
		return true
	}
}

// readLine returns the next line including its terminator, keeping at most
// maxLineSize bytes of it. truncated is set when the rest of the line was
// dropped. io.EOF is only returned once no data is left.
func (r *LogReader) readLine() (line []byte, truncated bool, err error) {
	r.line = r.line[:0]
	for {
		chunk, rerr := r.src.ReadSlice('\n')
		if room := maxLineSize - len(r.line); len(chunk) <= room {
			r.line = append(r.line, chunk...)
		} else {
			r.line = append(r.line, chunk[:room]...)
			truncated = true
		}

		switch {
		case rerr == bufio.ErrBufferFull:
			continue
		case rerr == io.EOF && len(r.line) > 0:
			return r.line, truncated, nil
		case rerr != nil:
			return nil, false, rerr
		}
		return r.line, truncated, nil
	}
}

// Record returns the record produced by the last successful Scan
func (r *LogReader) Record() *nginx.Record {
	return r.record
}

// Err returns the first read or decompression error encountered
func (r *LogReader) Err() error {
	return r.err
}

// LinesSeen returns the number of non-blank lines read so far
func (r *LogReader) LinesSeen() int {
	return r.linesSeen
}

// LinesParsed returns the number of lines successfully parsed so far
func (r *LogReader) LinesParsed() int {
	return r.linesParsed
}

// Close releases the underlying file
func (r *LogReader) Close() error {
	if r.gz != nil {
		if err := r.gz.Close(); err != nil {
			r.file.Close()
			return err
		}
	}
	return r.file.Close()
}
