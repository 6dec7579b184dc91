package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Preset bundles the tuned constants of one production ledger kind.
// The three kinds share the engine; only these numbers differ.
type Preset struct {
	Name         string
	Period       time.Duration
	Curvature    decimal.Decimal
	Emission     decimal.Decimal
	FreeEmission decimal.Decimal
}

var (
	// RaidPoints pays DKT for raid damage contributions, settled daily.
	RaidPoints = Preset{
		Name:         "raid_points",
		Period:       24 * time.Hour,
		Curvature:    decimal.NewFromInt(20000),
		Emission:     decimal.NewFromInt(5000),
		FreeEmission: decimal.NewFromInt(250),
	}

	// Dividends pays DKT against staked dividend shares, settled daily.
	Dividends = Preset{
		Name:         "dividends",
		Period:       24 * time.Hour,
		Curvature:    decimal.NewFromInt(50000),
		Emission:     decimal.NewFromInt(10000),
		FreeEmission: decimal.NewFromInt(500),
	}

	// SeasonalPoints backs the Christmas mini-game, settled hourly so
	// rewards stay snappy during the event.
	SeasonalPoints = Preset{
		Name:         "xmas_points",
		Period:       time.Hour,
		Curvature:    decimal.NewFromInt(10000),
		Emission:     decimal.NewFromInt(400),
		FreeEmission: decimal.NewFromInt(40),
	}
)

// Presets lists every production kind in wiring order.
func Presets() []Preset {
	return []Preset{RaidPoints, Dividends, SeasonalPoints}
}

// Config expands the preset into a full Config; the caller fills in the
// runtime dependencies before calling New.
func (p Preset) Config() Config {
	return Config{
		Name:         p.Name,
		Period:       p.Period,
		Curvature:    p.Curvature,
		Emission:     p.Emission,
		FreeEmission: p.FreeEmission,
	}
}
