package finance

import (
	"context"

	"github.com/alfredjeanlab/cooprules/internal/configstore"
)

// Compounding frequencies for savings interest.
const (
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyAnnually  = "annually"
)

// InterestResult is the interest earned on a balance over one compounding period.
type InterestResult struct {
	Balance    float64 `json:"balance"`
	AnnualRate float64 `json:"annual_rate"`
	Frequency  string  `json:"frequency"`
	PeriodRate float64 `json:"period_rate"`
	Interest   float64 `json:"interest"`
}

// SavingsInterest returns the interest for one compounding period. An
// unknown frequency is treated as monthly.
func (c *Calculator) SavingsInterest(ctx context.Context, balance float64) *InterestResult {
	annual := c.config.Decimal(ctx, configstore.KeySavingsInterestRate, DefaultSavingsInterestRate)
	freq := c.config.String(ctx, configstore.KeySavingsCompoundFreq, DefaultCompoundFrequency)

	var rate float64
	switch freq {
	case FrequencyQuarterly:
		rate = annual / 4 / 100
	case FrequencyAnnually:
		rate = annual / 100
	default:
		if freq != FrequencyMonthly {
			c.logger.Warn("unknown compounding frequency, using monthly", "frequency", freq)
			freq = FrequencyMonthly
		}
		rate = annual / 12 / 100
	}

	return &InterestResult{
		Balance:    balance,
		AnnualRate: annual,
		Frequency:  freq,
		PeriodRate: rate,
		Interest:   round2(balance * rate),
	}
}
