package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/greenfina/greenfina/internal/handler"
	"github.com/greenfina/greenfina/pkg/common"
	"github.com/greenfina/greenfina/pkg/loanterms"
	"github.com/greenfina/greenfina/pkg/policy"
	"github.com/greenfina/greenfina/pkg/rotation"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantMsg    string
	}{
		{
			name:       "loan terms name the field",
			err:        fmt.Errorf("quote: %w", &loanterms.InvalidLoanTermsError{Field: "principal", Value: -1}),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   "invalid_loan_terms",
		},
		{
			name:       "ambiguous payee",
			err:        &rotation.AmbiguousPayeeError{GroupID: 3},
			wantStatus: http.StatusConflict,
			wantType:   "ambiguous_payee",
		},
		{
			name:       "not current payee",
			err:        &rotation.NotCurrentPayeeError{MemberID: 4},
			wantStatus: http.StatusForbidden,
			wantType:   "not_current_payee",
		},
		{
			name:       "no payee",
			err:        fmt.Errorf("group 3: %w", rotation.ErrNoPayee),
			wantStatus: http.StatusConflict,
			wantType:   "no_payee",
		},
		{
			name:       "not found hides ids",
			err:        fmt.Errorf("loan 12: %w", common.ErrLoanNotFound),
			wantStatus: http.StatusNotFound,
			wantType:   "not_found",
			wantMsg:    common.ErrLoanNotFound.Error(),
		},
		{
			name:       "conflict",
			err:        fmt.Errorf("member 2: %w", common.ErrPaymentInFlight),
			wantStatus: http.StatusConflict,
			wantType:   "conflict",
			wantMsg:    common.ErrPaymentInFlight.Error(),
		},
		{
			name:       "wizard order",
			err:        fmt.Errorf("%w: complete financials first", common.ErrDraftStepOrder),
			wantStatus: http.StatusConflict,
			wantType:   "step_order",
			wantMsg:    common.ErrDraftStepOrder.Error(),
		},
		{
			name:       "unknown category",
			err:        fmt.Errorf("%w: boat", policy.ErrUnknownCategory),
			wantStatus: http.StatusBadRequest,
			wantType:   "invalid_request",
			wantMsg:    "unknown loan category: boat",
		},
		{
			name:       "credentials",
			err:        common.ErrInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
			wantType:   "invalid_credentials",
			wantMsg:    "Invalid email or password",
		},
		{
			name:       "timeout",
			err:        fmt.Errorf("upload: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   "timeout",
		},
		{
			name:       "anything else is internal",
			err:        errors.New("database is on fire"),
			wantStatus: http.StatusInternalServerError,
			wantType:   "service_error",
			wantMsg:    "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, errType, msg, _ := handler.Classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantType, errType)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, msg)
			}
		})
	}
}

func TestClassify_ExtraFields(t *testing.T) {
	_, _, _, extra := handler.Classify(&loanterms.InvalidLoanTermsError{Field: "termMonths", Value: 0})
	assert.Equal(t, "termMonths", extra["field"])

	_, _, _, extra = handler.Classify(&rotation.AmbiguousPayeeError{GroupID: 1})
	assert.Equal(t, true, extra["admin_alert"])

	_, _, _, extra = handler.Classify(common.ErrGroupFull)
	assert.Nil(t, extra)
}
