package configstore

import (
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/alfredjeanlab/cooprules/internal/model"
)

// Config keys read by the rules engine.
const (
	KeyMinMembershipMonths      = "MIN_MEMBERSHIP_MONTHS"
	KeyProbationMonths          = "MEMBERSHIP_PROBATION_MONTHS"
	KeyMinMandatorySavings      = "MIN_MANDATORY_SAVINGS"
	KeyMinDepositAmount         = "MIN_DEPOSIT_AMOUNT"
	KeyMinSavingsBalance        = "MIN_SAVINGS_BALANCE"
	KeyAllowMandatoryWithdrawal = "ALLOW_MANDATORY_WITHDRAWAL"
	KeySavingsInterestRate      = "SAVINGS_INTEREST_RATE"
	KeySavingsCompoundFreq      = "SAVINGS_INTEREST_COMPOUND_FREQ"
	KeyMaxLoanAmount            = "MAX_LOAN_AMOUNT"
	KeyLoanToSavingsMultiplier  = "LOAN_TO_SAVINGS_MULTIPLIER"
	KeyMaxActiveLoans           = "MAX_ACTIVE_LOANS_PER_MEMBER"
	KeyGuarantorThreshold       = "GUARANTOR_REQUIREMENT_THRESHOLD"
	KeyMinGuarantors            = "MIN_GUARANTORS_REQUIRED"
	KeyGracePeriodDays          = "DEFAULT_GRACE_PERIOD"
	KeyLoanPenaltyRate          = "LOAN_PENALTY_RATE"
	KeyLoanInterestRate         = "DEFAULT_INTEREST_RATE"
	KeyLoanInterestMethod       = "LOAN_INTEREST_METHOD"
	KeyMaxLoanTermMonths        = "MAX_LOAN_TERM_MONTHS"
	KeyLoanTypeLimits           = "LOAN_TYPE_LIMITS"
	KeyCurrencyCode             = "CURRENCY_CODE"
)

//go:embed defaults.toml
var defaultsTOML []byte

type seedFile struct {
	Entries []*model.ConfigEntry `toml:"entry"`
}

// Defaults returns the built-in entry definitions.
func Defaults() ([]*model.ConfigEntry, error) {
	return ParseSeed(defaultsTOML)
}

// ParseSeed decodes a TOML seed file made of [[entry]] tables.
func ParseSeed(data []byte) ([]*model.ConfigEntry, error) {
	var f seedFile
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing seed file: unknown field %s", undecoded[0])
	}
	return f.Entries, nil
}
