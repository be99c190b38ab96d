package model

import "time"

// Sample is one time-stamped reading of a scalar metric.
type Sample struct {
	Timestamp time.Time
	Value     int
}

// Snapshot is a time-aligned reading of every dashboard metric.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Usage     int       `json:"usage_pct"`     // percent 0-100
	FreqMHz   int       `json:"freq_mhz"`      // average across logical cores
	TempC     int       `json:"temp_c"`        // package temperature
	PowerW    int       `json:"power_w"`       // package power draw
	Brand     string    `json:"cpu,omitempty"` // CPU model name
}
