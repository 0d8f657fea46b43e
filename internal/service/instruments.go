package service

import (
	"errors"

	"github.com/greenfina/greenfina/pkg/common"
	"github.com/greenfina/greenfina/pkg/instrument"
	"github.com/greenfina/greenfina/pkg/loanterms"
	"github.com/greenfina/greenfina/pkg/policy"
	"github.com/greenfina/greenfina/pkg/rotation"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var expected = []error{
	common.ErrUserNotFound,
	common.ErrEmailExists,
	common.ErrInvalidCredentials,
	common.ErrLoanNotFound,
	common.ErrLoanNotPending,
	common.ErrInvalidDecision,
	common.ErrDraftNotFound,
	common.ErrDraftStepOrder,
	common.ErrUnknownStep,
	common.ErrGroupNotFound,
	common.ErrGroupFull,
	common.ErrAlreadyMember,
	common.ErrMemberNotFound,
	common.ErrMemberNotVerified,
	common.ErrPaymentNotFound,
	common.ErrPaymentNotPending,
	common.ErrPaymentInFlight,
	common.ErrIndexNotFound,
	common.ErrInvalidAmount,
	loanterms.ErrInvalidLoanTerms,
	policy.ErrUnknownCategory,
	policy.ErrUnknownFlow,
	rotation.ErrNotCurrentPayee,
	rotation.ErrNoPayee,
}

// NewInstruments records service.* metrics. Business rule rejections are
// expected outcomes; an ambiguous payee is not and still counts as an error.
func NewInstruments(meter metric.Meter, tracer trace.Tracer) *instrument.Instruments {
	return instrument.New(meter, tracer, "service", func(err error) bool {
		for _, target := range expected {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	})
}
