// Package quality scores captured frames for blur, skew, glare, cropping and
// document size.
package quality

import "encoding/json"

// WarningType identifies the metric a warning comes from.
type WarningType string

const (
	WarningBlur       WarningType = "blur"
	WarningSkew       WarningType = "skew"
	WarningGlare      WarningType = "glare"
	WarningIncomplete WarningType = "incomplete"
	WarningTooSmall   WarningType = "tooSmall"
)

// Severity grades a warning. Only SeverityError makes a report unacceptable.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Warning is one advisory finding.
type Warning struct {
	Type     WarningType `json:"type"`
	Severity Severity    `json:"severity"`
	Message  string      `json:"message"`
}

// Report holds every metric computed for one capture plus the warnings they
// raised. Reports are advisory and never block a capture.
type Report struct {
	BlurScore                  float64   `json:"blurScore"`
	SkewAngleDegrees           float64   `json:"skewAngleDegrees"`
	GlarePercentage            float64   `json:"glarePercentage"`
	DocumentCoveragePercentage float64   `json:"documentCoveragePercentage"`
	IsComplete                 bool      `json:"isComplete"`
	Warnings                   []Warning `json:"warnings"`

	// TextConfidence is the optional OCR readability probe result in [0,1];
	// nil when the probe did not run.
	TextConfidence *float64 `json:"textConfidence,omitempty"`
}

// IsAcceptable reports whether no warning has error severity.
func (r Report) IsAcceptable() bool {
	for _, w := range r.Warnings {
		if w.Severity == SeverityError {
			return false
		}
	}
	return true
}

// HasWarning reports whether a warning of the given type was raised.
func (r Report) HasWarning(t WarningType) bool {
	for _, w := range r.Warnings {
		if w.Type == t {
			return true
		}
	}
	return false
}

// MarshalJSON adds the derived isAcceptable field.
func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	return json.Marshal(struct {
		plain
		IsAcceptable bool `json:"isAcceptable"`
	}{plain(r), r.IsAcceptable()})
}
