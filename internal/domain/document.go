package domain

import "github.com/goccy/go-json"

// Document is an upstream response body kept as raw JSON. It is never
// decoded into typed fields.
type Document = json.RawMessage

// Outcome labels used for audit rows and metrics.
const (
	OutcomeOK            = "ok"
	OutcomeUpstreamError = "upstream_error" // 200 with "status":"error" inside
)

// FeedStatus reads the top-level "status" field of a WAQI document.
// Returns "" if the document has none or is not an object.
func FeedStatus(doc Document) string {
	var head struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(doc, &head); err != nil {
		return ""
	}
	return head.Status
}
