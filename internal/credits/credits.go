// Package credits centralizes enrichment spend: per-provider per-job costs,
// batch estimates, and usage-level classification against the monthly cap.
package credits

// perJobCost is the estimated credits one enrichment consumes, by provider.
// Free providers (self-hosted or separately billed) cost 0.
var perJobCost = map[string]float64{
	"icypeas":      1.5, // company scrape (0.5) + domain search (1)
	"captain-data": 0,   // billed via subscription
	"crawl4ai":     0,   // self-hosted sidecar
	"mock":         0,
	"none":         0,
}

// Estimate returns the credits a batch of jobCount enrichments will cost
// with the given provider. Unknown providers estimate 0.
func Estimate(jobCount int, providerID string) float64 {
	return float64(jobCount) * perJobCost[providerID]
}

// Level classifies how much of the monthly cap has been spent.
type Level string

const (
	LevelOK       Level = "ok"
	LevelWarning  Level = "warning"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Usage thresholds as fractions of the monthly cap, boundaries inclusive.
const (
	warningFraction  = 0.50
	highFraction     = 0.80
	criticalFraction = 0.95
)

// UsageLevel classifies used/cap. A cap <= 0 means no cap is configured and
// always reads ok.
func UsageLevel(used, cap float64) Level {
	if cap <= 0 {
		return LevelOK
	}
	fraction := used / cap
	switch {
	case fraction >= criticalFraction:
		return LevelCritical
	case fraction >= highFraction:
		return LevelHigh
	case fraction >= warningFraction:
		return LevelWarning
	default:
		return LevelOK
	}
}
