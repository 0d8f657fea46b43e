package model

import (
	"github.com/greenfina/greenfina/internal/domain"
)

func StokvelaGroupFromEntity(data *domain.StokvelaGroup) StokvelaGroup {
	return StokvelaGroup{
		ID:                 data.ID,
		Name:               data.Name,
		Description:        data.Description,
		ContributionAmount: data.ContributionAmount,
		MaxMembers:         data.MaxMembers,
		StartDate:          data.StartDate,
		CreatedBy:          data.CreatedBy,
	}
}

func StokvelaGroupToEntity(data StokvelaGroup) *domain.StokvelaGroup {
	return &domain.StokvelaGroup{
		ID:                 data.ID,
		Name:               data.Name,
		Description:        data.Description,
		ContributionAmount: data.ContributionAmount,
		MaxMembers:         data.MaxMembers,
		StartDate:          data.StartDate,
		CreatedBy:          data.CreatedBy,
		MemberCount:        len(data.Members),
		CreatedAt:          data.CreatedAt,
	}
}

func StokvelaMemberFromEntity(data *domain.StokvelaMember) StokvelaMember {
	return StokvelaMember{
		ID:                 data.ID,
		GroupID:            data.GroupID,
		UserID:             data.UserID,
		Position:           data.Position,
		ContributionAmount: data.ContributionAmount,
		AmountContributed:  data.AmountContributed,
		AmountReceived:     data.AmountReceived,
		Verified:           data.Verified,
	}
}

func StokvelaMemberToEntity(data StokvelaMember) *domain.StokvelaMember {
	return &domain.StokvelaMember{
		ID:                 data.ID,
		GroupID:            data.GroupID,
		UserID:             data.UserID,
		Position:           data.Position,
		ContributionAmount: data.ContributionAmount,
		AmountContributed:  data.AmountContributed,
		AmountReceived:     data.AmountReceived,
		Verified:           data.Verified,
		JoinedAt:           data.JoinedAt,
	}
}

func StokvelaMembersToEntity(data []StokvelaMember) []domain.StokvelaMember {
	responses := make([]domain.StokvelaMember, len(data))
	for i, m := range data {
		responses[i] = *StokvelaMemberToEntity(m)
	}

	return responses
}

func StokvelaPaymentFromEntity(data *domain.StokvelaPayment) StokvelaPayment {
	return StokvelaPayment{
		ID:         data.ID,
		Reference:  data.Reference,
		GroupID:    data.GroupID,
		MemberID:   data.MemberID,
		Amount:     data.Amount,
		ProofUrl:   data.ProofUrl,
		Note:       data.Note,
		Status:     string(data.Status),
		ReviewedBy: data.ReviewedBy,
		ReviewedAt: data.ReviewedAt,

		AccountHolderName: data.AccountHolderName,
		Signature:         data.Signature,
	}
}

func StokvelaPaymentToEntity(data StokvelaPayment) *domain.StokvelaPayment {
	return &domain.StokvelaPayment{
		ID:         data.ID,
		Reference:  data.Reference,
		GroupID:    data.GroupID,
		MemberID:   data.MemberID,
		Amount:     data.Amount,
		ProofUrl:   data.ProofUrl,
		Note:       data.Note,
		Status:     domain.PaymentStatus(data.Status),
		ReviewedBy: data.ReviewedBy,
		ReviewedAt: data.ReviewedAt,
		CreatedAt:  data.CreatedAt,

		AccountHolderName: data.AccountHolderName,
		Signature:         data.Signature,
	}
}

func StokvelaPaymentsToEntity(data []StokvelaPayment) []domain.StokvelaPayment {
	responses := make([]domain.StokvelaPayment, len(data))
	for i, p := range data {
		responses[i] = *StokvelaPaymentToEntity(p)
	}

	return responses
}
