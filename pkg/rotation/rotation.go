// Package rotation decides whose turn it is to receive a stokvela payout
// and aggregates contribution totals. Inputs are never modified.
package rotation

import (
	"errors"
	"fmt"
	"sort"
)

// PayeePosition is the queue position of the member due to be paid.
const PayeePosition = 1

var (
	ErrAmbiguousPayee  = errors.New("more than one member holds the payee position")
	ErrNotCurrentPayee = errors.New("member is not the current payee")
	ErrNoPayee         = errors.New("no member holds the payee position")
)

type AmbiguousPayeeError struct {
	GroupID uint64
}

func (e *AmbiguousPayeeError) Error() string {
	return fmt.Sprintf("group %d: %s", e.GroupID, ErrAmbiguousPayee)
}

func (e *AmbiguousPayeeError) Is(target error) bool { return target == ErrAmbiguousPayee }

type NotCurrentPayeeError struct {
	MemberID uint64
}

func (e *NotCurrentPayeeError) Error() string {
	return fmt.Sprintf("member %d: %s", e.MemberID, ErrNotCurrentPayee)
}

func (e *NotCurrentPayeeError) Is(target error) bool { return target == ErrNotCurrentPayee }

type Member struct {
	ID                 uint64
	GroupID            uint64
	UserID             uint64
	Position           int
	ContributionAmount float64
	AmountContributed  float64
	AmountReceived     float64
	Verified           bool
}

type State string

const (
	StateJoined       State = "JOINED"
	StateContributing State = "CONTRIBUTING"
	StateEligible     State = "ELIGIBLE"
)

// StateOf reports where a member sits in the payout cycle.
func StateOf(m Member) State {
	switch {
	case m.Position == PayeePosition:
		return StateEligible
	case m.AmountContributed == 0:
		return StateJoined
	default:
		return StateContributing
	}
}

func groupOf(members []Member) uint64 {
	if len(members) == 0 {
		return 0
	}
	return members[0].GroupID
}

// CurrentPayee returns the member at the payee position, or nil when the
// group is between rotations.
func CurrentPayee(members []Member) (*Member, error) {
	var payee *Member
	for i := range members {
		if members[i].Position != PayeePosition {
			continue
		}
		if payee != nil {
			return nil, &AmbiguousPayeeError{GroupID: groupOf(members)}
		}
		m := members[i]
		payee = &m
	}

	return payee, nil
}

// AuthorizePayment succeeds only for the current payee.
func AuthorizePayment(members []Member, candidateMemberID uint64) (*Member, error) {
	payee, err := CurrentPayee(members)
	if err != nil {
		return nil, err
	}
	if payee == nil || payee.ID != candidateMemberID {
		return nil, &NotCurrentPayeeError{MemberID: candidateMemberID}
	}

	return payee, nil
}

func TotalContributed(members []Member) float64 {
	var total float64
	for _, m := range members {
		total += m.AmountContributed
	}
	return total
}

// TotalExpected is what the group should have collected after
// periodsElapsed contribution periods.
func TotalExpected(members []Member, periodsElapsed int) float64 {
	if periodsElapsed <= 0 {
		return 0
	}

	var perPeriod float64
	for _, m := range members {
		perPeriod += m.ContributionAmount
	}
	return perPeriod * float64(periodsElapsed)
}

// Advance moves the current payee to the back of the queue and renumbers
// every position from 1, closing gaps. The returned slice is ordered by the
// new position.
func Advance(members []Member) ([]Member, error) {
	payee, err := CurrentPayee(members)
	if err != nil {
		return nil, err
	}
	if payee == nil {
		return nil, fmt.Errorf("group %d: %w", groupOf(members), ErrNoPayee)
	}

	queue := make([]Member, 0, len(members))
	for _, m := range members {
		if m.ID != payee.ID {
			queue = append(queue, m)
		}
	}
	sort.SliceStable(queue, func(i, j int) bool { return queue[i].Position < queue[j].Position })
	queue = append(queue, *payee)

	for i := range queue {
		queue[i].Position = i + 1
	}

	return queue, nil
}
