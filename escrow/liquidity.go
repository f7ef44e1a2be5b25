package escrow

import "math"

// StatusConfig is the presentation for a liquidity status.
type StatusConfig struct {
	Icon       string `json:"icon"`
	TextColor  string `json:"textColor"`
	Background string `json:"background"`
	Title      string `json:"title"`
	BarFrom    string `json:"barFrom"`
	BarTo      string `json:"barTo"`
}

var (
	healthyConfig = StatusConfig{
		Icon:       "shield-check",
		TextColor:  "text-emerald-600",
		Background: "bg-emerald-50",
		Title:      "Healthy liquidity",
		BarFrom:    "from-emerald-400",
		BarTo:      "to-emerald-600",
	}
	watchConfig = StatusConfig{
		Icon:       "alert-triangle",
		TextColor:  "text-amber-600",
		Background: "bg-amber-50",
		Title:      "Watch liquidity",
		BarFrom:    "from-amber-400",
		BarTo:      "to-amber-600",
	}
	riskConfig = StatusConfig{
		Icon:       "alert-octagon",
		TextColor:  "text-rose-600",
		Background: "bg-rose-50",
		Title:      "Liquidity at risk",
		BarFrom:    "from-rose-400",
		BarTo:      "to-rose-600",
	}
)

// ClassifyStatus returns the presentation for status. Unrecognised values
// render exactly like healthy.
func ClassifyStatus(status Status) StatusConfig {
	switch status {
	case StatusHealthy:
		return healthyConfig
	case StatusWatch:
		return watchConfig
	case StatusRisk:
		return riskConfig
	default:
		return healthyConfig
	}
}

// ProgressPercent maps a coverage ratio onto a 0-100 bar where 3.0 fills it.
// The result is ratio/3*100 rounded to two decimals, so a ratio of 1 reads
// 33.33 rather than 33.333... and 2.4 reads exactly 80. Rounding keeps the
// bar monotonic in the ratio.
func ProgressPercent(ratio float64) float64 {
	if ratio <= 0 || math.IsNaN(ratio) {
		return 0
	}
	pct := math.Round(ratio*100/maxCoverage*100) / 100
	return math.Min(pct, 100)
}

// LiquidityView is the display-ready liquidity card.
type LiquidityView struct {
	Status          Status       `json:"status"`
	Ratio           float64      `json:"ratio"`
	Explanation     string       `json:"explanation"`
	Config          StatusConfig `json:"config"`
	ProgressPercent float64      `json:"progressPercent"`
	ShowAddFunds    bool         `json:"showAddFunds"`
}

func NewLiquidityView(h LiquidityHealth) LiquidityView {
	return LiquidityView{
		Status:          h.Status,
		Ratio:           h.Ratio,
		Explanation:     h.Explanation,
		Config:          ClassifyStatus(h.Status),
		ProgressPercent: ProgressPercent(h.Ratio),
		ShowAddFunds:    h.Status != StatusHealthy,
	}
}
