package evaluator

import "github.com/scadawatch/scadawatch/internal/types"

// Treatment is how a reading is presented in alarm lists and notifications.
type Treatment struct {
	Color string `json:"color"`
	Title string `json:"title"`
	Icon  string `json:"icon"`
}

var (
	treatmentNormal   = Treatment{Color: "#2e7d32", Title: "Normal", Icon: "🟢"}
	treatmentCritical = Treatment{Color: "#c62828", Title: "Critical", Icon: "🔴"}
	treatmentWarning  = Treatment{Color: "#f9a825", Title: "Warning", Icon: "⚠️"}
	treatmentInfo     = Treatment{Color: "#1565c0", Title: "Info", Icon: "ℹ️"}
)

// Display crosses the alarm's assigned severity with its classification.
// Severity is never derived from the reading itself.
func Display(severity types.Severity, outOfRange bool) Treatment {
	if !outOfRange {
		return treatmentNormal
	}
	switch severity {
	case types.SeverityCritical:
		return treatmentCritical
	case types.SeverityWarning:
		return treatmentWarning
	default:
		return treatmentInfo
	}
}
