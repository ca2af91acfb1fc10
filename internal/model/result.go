package model

import "time"

// ProbeResult is the outcome of probing a single host.
type ProbeResult struct {
	Host    string
	Alive   bool
	Message string
	// AvgRTT is zero when the probe output carried no round-trip summary.
	AvgRTT time.Duration
}

type Report struct {
	From       string
	Recipients []string
	Subject    string
	Body       string
	Date       time.Time
	MessageID  string
}
