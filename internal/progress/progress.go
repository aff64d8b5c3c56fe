package progress

import (
	"fmt"
	"math"
)

// Placeholder is shown wherever a value is unknown (total reported as 0,
// absent ETA and so on).
const Placeholder = "—"

const secondsPerMinute = 60

// Display holds the human-facing values derived from one status payload.
// Percent is passed through verbatim, including out-of-range input.
type Display struct {
	Percent      float64
	PercentLabel string
	Counts       string
	ETA          string
	Message      string
	CurrentFile  string
}

// Render maps a raw status payload onto display values. It is a pure
// function: count and percent labels collapse to Placeholder when total is 0
// (server does not know the amount of work yet).
func Render(percent float64, message, currentFile string, processed, total int, etaSeconds *float64) Display {
	d := Display{
		Percent:      percent,
		PercentLabel: Placeholder,
		Counts:       Placeholder,
		ETA:          FormatETA(etaSeconds),
		Message:      message,
		CurrentFile:  currentFile,
	}
	if total != 0 {
		d.Counts = fmt.Sprintf("%d of %d", processed, total)
		d.PercentLabel = fmt.Sprintf("%.1f%%", percent)
	}
	return d
}

// FormatETA renders estimated seconds remaining. Unknown or non-positive
// values produce Placeholder; one minute and above switches to "N min M sec".
func FormatETA(etaSeconds *float64) string {
	if etaSeconds == nil || *etaSeconds <= 0 {
		return Placeholder
	}
	seconds := *etaSeconds
	if seconds >= secondsPerMinute {
		return fmt.Sprintf("%d min %d sec",
			int(math.Floor(seconds/secondsPerMinute)),
			int(math.Floor(math.Mod(seconds, secondsPerMinute))))
	}
	return fmt.Sprintf("%d sec", int(math.Floor(seconds)))
}
