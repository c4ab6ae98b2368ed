// Package schemas embeds the JSON Schemas for artifacts the CLI writes.
package schemas

import _ "embed"

// ReportFile is the file name of the verdict report schema.
const ReportFile = "report.schema.json"

//go:embed report.schema.json
var report string

// Report returns the verdict report schema document.
func Report() string {
	return report
}
