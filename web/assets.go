// Package web holds the static files shipped inside the binary.
package web

import (
	"embed"
	"io/fs"
)

//go:embed report/report.html report/tablesort.js
var reportFiles embed.FS

// ReportFS returns the default report template and its sorter script
func ReportFS() fs.FS {
	sub, err := fs.Sub(reportFiles, "report")
	if err != nil {
		panic(err)
	}
	return sub
}
