package project

import (
	"strconv"

	"github.com/rs/zerolog/log"
)

// Progress receives progress updates from Open and Save. Report is called
// synchronously from the goroutine running the operation.
type Progress interface {
	Report(label string, fraction float64)
}

// ProgressFunc adapts a function to Progress.
type ProgressFunc func(label string, fraction float64)

// Report calls f.
func (f ProgressFunc) Report(label string, fraction float64) { f(label, fraction) }

// Discard ignores progress updates.
var Discard Progress = ProgressFunc(func(string, float64) {})

// LogProgress reports progress through the global logger.
type LogProgress struct{}

// Report logs the update at info level.
func (LogProgress) Report(label string, fraction float64) {
	log.Info().Str("progress", percent(fraction)).Msg(label)
}

func percent(fraction float64) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return strconv.FormatFloat(fraction*100, 'f', 0, 64) + "%"
}
