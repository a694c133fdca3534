package model

// Credit score bounds.
const (
	MinCreditScore = 300
	MaxCreditScore = 850
)

// CreditRating is the band a credit score falls into.
type CreditRating string

const (
	RatingExcellent CreditRating = "Excellent"
	RatingGood      CreditRating = "Good"
	RatingFair      CreditRating = "Fair"
	RatingPoor      CreditRating = "Poor"
	RatingVeryPoor  CreditRating = "Very Poor"
)

// RatingFor maps a score to its rating band.
func RatingFor(score int) CreditRating {
	switch {
	case score >= 750:
		return RatingExcellent
	case score >= 700:
		return RatingGood
	case score >= 650:
		return RatingFair
	case score >= 600:
		return RatingPoor
	}
	return RatingVeryPoor
}

// CreditScoreResult is the output of credit scoring.
type CreditScoreResult struct {
	MemberID         int64        `json:"member_id"`
	Score            int          `json:"score"`
	Rating           CreditRating `json:"rating"`
	TotalPayments    int          `json:"total_payments"`
	OnTimePercentage float64      `json:"on_time_percentage"`
	CompliantMonths  int          `json:"compliant_months"`
}
