// Package loanterms converts a principal, rate and term into the payment
// figures shown to applicants. Two loan products coexist: an amortizing
// product priced per category and a flat add-on product. They are kept as
// separate operations.
package loanterms

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/greenfina/greenfina/pkg/money"
)

// ErrInvalidLoanTerms matches every *InvalidLoanTermsError via errors.Is.
var ErrInvalidLoanTerms = errors.New("invalid loan terms")

// InvalidLoanTermsError names the input field that violated its constraint.
type InvalidLoanTermsError struct {
	Field string
	Value float64
}

func (e *InvalidLoanTermsError) Error() string {
	return fmt.Sprintf("invalid loan terms: %s (%v)", e.Field, e.Value)
}

func (e *InvalidLoanTermsError) Is(target error) bool {
	return target == ErrInvalidLoanTerms
}

// Quote holds the amortized figures at full precision.
type Quote struct {
	Principal         float64 `json:"principal"`
	AnnualRatePercent float64 `json:"annual_rate_percent"`
	TermMonths        int     `json:"term_months"`
	MonthlyPayment    float64 `json:"monthly_payment"`
	TotalRepayment    float64 `json:"total_repayment"`
	TotalInterest     float64 `json:"total_interest"`
}

// Rounded returns a copy with the derived figures rounded to cents. Use it
// for display only.
func (q Quote) Rounded() Quote {
	q.MonthlyPayment = money.Round2(q.MonthlyPayment)
	q.TotalRepayment = money.Round2(q.TotalRepayment)
	q.TotalInterest = money.Round2(q.TotalInterest)
	return q
}

// FlatQuote is the result of the flat add-on product.
type FlatQuote struct {
	Principal       float64 `json:"principal"`
	FlatRatePercent float64 `json:"flat_rate_percent"`
	ReturnAmount    float64 `json:"return_amount"`
	InterestPortion float64 `json:"interest_portion"`
}

func (q FlatQuote) Rounded() FlatQuote {
	q.ReturnAmount = money.Round2(q.ReturnAmount)
	q.InterestPortion = money.Round2(q.InterestPortion)
	return q
}

func invalid(field string, value float64) error {
	return &InvalidLoanTermsError{Field: field, Value: value}
}

func notFinite(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// AmortizedMonthlyPayment computes the fixed monthly payment that repays
// principal with interest compounded monthly at annualRatePercent/12.
func AmortizedMonthlyPayment(principal, annualRatePercent float64, termMonths int) (Quote, error) {
	if notFinite(principal) || principal <= 0 {
		return Quote{}, invalid("principal", principal)
	}
	if notFinite(annualRatePercent) || annualRatePercent < 0 {
		return Quote{}, invalid("annualRatePercent", annualRatePercent)
	}
	if termMonths <= 0 {
		return Quote{}, invalid("termMonths", float64(termMonths))
	}

	n := float64(termMonths)
	r := annualRatePercent / 100 / 12

	var payment float64
	if r == 0 {
		payment = principal / n
	} else {
		growth := math.Pow(1+r, n)
		payment = principal * r * growth / (growth - 1)
	}

	total := payment * n

	return Quote{
		Principal:         principal,
		AnnualRatePercent: annualRatePercent,
		TermMonths:        termMonths,
		MonthlyPayment:    payment,
		TotalRepayment:    total,
		TotalInterest:     total - principal,
	}, nil
}

// FlatInterestReturnAmount charges flatRatePercent once on the principal,
// independent of the term.
func FlatInterestReturnAmount(principal, flatRatePercent float64) (FlatQuote, error) {
	if notFinite(principal) || principal <= 0 {
		return FlatQuote{}, invalid("principal", principal)
	}
	if notFinite(flatRatePercent) || flatRatePercent < 0 {
		return FlatQuote{}, invalid("flatRatePercent", flatRatePercent)
	}

	returnAmount := principal * (1 + flatRatePercent/100)

	return FlatQuote{
		Principal:       principal,
		FlatRatePercent: flatRatePercent,
		ReturnAmount:    returnAmount,
		InterestPortion: returnAmount - principal,
	}, nil
}

// CheckAffordability reports whether loanAmount fits within the given
// fraction of monthly income. The boundary is inclusive.
func CheckAffordability(loanAmount, monthlyIncome, maxIncomeFraction float64) bool {
	return decimal.NewFromFloat(loanAmount).LessThanOrEqual(affordabilityLimit(monthlyIncome, maxIncomeFraction))
}

// AffordabilityLimit is the largest loan amount CheckAffordability accepts
// for the given income and fraction.
func AffordabilityLimit(monthlyIncome, maxIncomeFraction float64) float64 {
	return affordabilityLimit(monthlyIncome, maxIncomeFraction).InexactFloat64()
}

// Decimal keeps fractions such as 0.29 exact so the boundary stays inclusive.
func affordabilityLimit(monthlyIncome, maxIncomeFraction float64) decimal.Decimal {
	return decimal.NewFromFloat(monthlyIncome).Mul(decimal.NewFromFloat(maxIncomeFraction))
}
