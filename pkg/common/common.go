package common

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrLoanNotFound    = errors.New("loan application not found")
	ErrLoanNotPending  = errors.New("loan application has already been reviewed")
	ErrInvalidDecision = errors.New("decision must be approved or rejected")

	ErrDraftNotFound  = errors.New("no loan application draft in progress")
	ErrDraftStepOrder = errors.New("previous wizard step has not been completed")
	ErrUnknownStep    = errors.New("unknown wizard step")

	ErrGroupNotFound     = errors.New("stokvela group not found")
	ErrGroupFull         = errors.New("stokvela group is full")
	ErrAlreadyMember     = errors.New("user is already a member of this group")
	ErrMemberNotFound    = errors.New("stokvela member not found")
	ErrMemberNotVerified = errors.New("member has not been verified for payouts")

	ErrPaymentNotFound   = errors.New("payment not found")
	ErrPaymentNotPending = errors.New("payment has already been reviewed")
	ErrPaymentInFlight   = errors.New("a payout for this member is already awaiting review")

	ErrIndexNotFound = errors.New("investment index not found")
	ErrInvalidAmount = errors.New("amount must be greater than zero")
)
