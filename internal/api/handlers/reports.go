package handlers

import (
	"net/http"

	"ngxreport/internal/ingestion"
	"ngxreport/internal/report"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"
)

// ResultSource exposes the most recent pipeline run
type ResultSource interface {
	LastResult() *ingestion.Result
}

// ReportsHandler serves the index of rendered reports
type ReportsHandler struct {
	reportDir string
	results   ResultSource
	logger    *pterm.Logger
}

// NewReportsHandler creates a new reports handler
func NewReportsHandler(reportDir string, results ResultSource, logger *pterm.Logger) *ReportsHandler {
	return &ReportsHandler{
		reportDir: reportDir,
		results:   results,
		logger:    logger,
	}
}

// ListReports returns every rendered report, newest first
func (h *ReportsHandler) ListReports(c *gin.Context) {
	entries, err := report.List(h.reportDir)
	if err != nil {
		h.logger.WithCaller().Error("Failed to list reports", h.logger.Args("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// GetLatestReport returns the newest report entry
func (h *ReportsHandler) GetLatestReport(c *gin.Context) {
	entry, ok := h.latest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, entry)
}

// RedirectLatest sends the browser to the newest rendered report
func (h *ReportsHandler) RedirectLatest(c *gin.Context) {
	entry, ok := h.latest(c)
	if !ok {
		return
	}
	c.Redirect(http.StatusFound, "/reports/"+entry.Name)
}

// GetLastRun returns the result of the most recent pipeline run
func (h *ReportsHandler) GetLastRun(c *gin.Context) {
	result := h.results.LastResult()
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No run completed yet"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ReportsHandler) latest(c *gin.Context) (report.Entry, bool) {
	entries, err := report.List(h.reportDir)
	if err != nil {
		h.logger.WithCaller().Error("Failed to list reports", h.logger.Args("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
		return report.Entry{}, false
	}
	if len(entries) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No reports rendered yet"})
		return report.Entry{}, false
	}
	return entries[0], true
}
