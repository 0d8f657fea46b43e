package loanterms_test

import (
	"errors"
	"math"
	"testing"

	"github.com/greenfina/greenfina/pkg/loanterms"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmortizedMonthlyPayment_Identities(t *testing.T) {
	cases := []struct {
		name      string
		principal float64
		rate      float64
		term      int
	}{
		{"student", 10000, 8.5, 12},
		{"personal", 50000, 12.5, 24},
		{"business", 100000, 15, 36},
		{"single month", 2500, 20, 1},
		{"long term", 750000, 11.25, 240},
		{"zero rate", 1200, 0, 12},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := loanterms.AmortizedMonthlyPayment(tc.principal, tc.rate, tc.term)
			require.NoError(t, err)

			assert.InDelta(t, q.MonthlyPayment*float64(tc.term), q.TotalRepayment, 1e-6)
			assert.InDelta(t, q.TotalRepayment-tc.principal, q.TotalInterest, 1e-6)
			assert.GreaterOrEqual(t, q.TotalInterest, -1e-6)
		})
	}
}

func TestAmortizedMonthlyPayment_KnownValues(t *testing.T) {
	q, err := loanterms.AmortizedMonthlyPayment(50000, 12.5, 24)
	require.NoError(t, err)

	r := q.Rounded()
	assert.Equal(t, 2365.37, r.MonthlyPayment)
	assert.Equal(t, 56768.77, r.TotalRepayment)
	assert.Equal(t, 6768.77, r.TotalInterest)

	// Totals derive from the unrounded payment.
	assert.NotEqual(t, r.MonthlyPayment*24, q.TotalRepayment)

	q, err = loanterms.AmortizedMonthlyPayment(10000, 8.5, 12)
	require.NoError(t, err)
	assert.Equal(t, 872.20, q.Rounded().MonthlyPayment)
}

func TestAmortizedMonthlyPayment_ZeroRate(t *testing.T) {
	q, err := loanterms.AmortizedMonthlyPayment(1000, 0, 3)
	require.NoError(t, err)

	assert.Equal(t, 1000.0/3, q.MonthlyPayment)
	assert.InDelta(t, 1000, q.TotalRepayment, 1e-9)
	assert.InDelta(t, 0, q.TotalInterest, 1e-9)
}

func TestAmortizedMonthlyPayment_InvalidInput(t *testing.T) {
	cases := []struct {
		name      string
		principal float64
		rate      float64
		term      int
		field     string
	}{
		{"negative principal", -100, 10, 12, "principal"},
		{"zero principal", 0, 10, 12, "principal"},
		{"NaN principal", math.NaN(), 10, 12, "principal"},
		{"negative rate", 100, -1, 12, "annualRatePercent"},
		{"infinite rate", 100, math.Inf(1), 12, "annualRatePercent"},
		{"zero term", 100, 10, 0, "termMonths"},
		{"negative term", 100, 10, -6, "termMonths"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loanterms.AmortizedMonthlyPayment(tc.principal, tc.rate, tc.term)
			require.Error(t, err)
			assert.True(t, errors.Is(err, loanterms.ErrInvalidLoanTerms))

			var termsErr *loanterms.InvalidLoanTermsError
			require.True(t, errors.As(err, &termsErr))
			assert.Equal(t, tc.field, termsErr.Field)
		})
	}
}

func TestFlatInterestReturnAmount(t *testing.T) {
	q, err := loanterms.FlatInterestReturnAmount(1000, 40)
	require.NoError(t, err)
	assert.InDelta(t, 1400.00, q.ReturnAmount, 1e-9)
	assert.InDelta(t, 400.00, q.InterestPortion, 1e-9)
	assert.Equal(t, 1400.00, q.Rounded().ReturnAmount)

	q, err = loanterms.FlatInterestReturnAmount(2500, 0)
	require.NoError(t, err)
	assert.Equal(t, 2500.0, q.ReturnAmount)
	assert.Equal(t, 0.0, q.InterestPortion)
}

func TestFlatInterestReturnAmount_InvalidInput(t *testing.T) {
	_, err := loanterms.FlatInterestReturnAmount(0, 40)
	var termsErr *loanterms.InvalidLoanTermsError
	require.ErrorAs(t, err, &termsErr)
	assert.Equal(t, "principal", termsErr.Field)

	_, err = loanterms.FlatInterestReturnAmount(1000, -5)
	require.ErrorAs(t, err, &termsErr)
	assert.Equal(t, "flatRatePercent", termsErr.Field)
}

func TestCheckAffordability(t *testing.T) {
	cases := []struct {
		name     string
		amount   float64
		income   float64
		fraction float64
		want     bool
	}{
		{"boundary inclusive", 4000, 10000, 0.40, true},
		{"just above boundary", 4001, 10000, 0.40, false},
		{"application fraction", 3000, 10000, 0.30, true},
		{"application fraction exceeded", 3500, 10000, 0.30, false},
		{"zero income zero loan", 0, 0, 0.40, true},
		{"zero income any loan", 1, 0, 0.40, false},
		{"inexact fraction boundary", 29, 100, 0.29, true},
		{"inexact fraction above boundary", 29.01, 100, 0.29, false},
		{"configured fraction boundary", 5700, 10000, 0.57, true},
		{"configured fraction above boundary", 5700.01, 10000, 0.57, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, loanterms.CheckAffordability(tc.amount, tc.income, tc.fraction))
		})
	}
}

func TestAffordabilityLimit(t *testing.T) {
	assert.Equal(t, 29.0, loanterms.AffordabilityLimit(100, 0.29))
	assert.Equal(t, 5700.0, loanterms.AffordabilityLimit(10000, 0.57))
	assert.Equal(t, 4000.0, loanterms.AffordabilityLimit(10000, 0.40))
}
