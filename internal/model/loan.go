package model

import (
	"github.com/greenfina/greenfina/internal/domain"
)

func LoanApplicationFromEntity(data *domain.LoanApplication) LoanApplication {
	return LoanApplication{
		ID:                data.ID,
		UserID:            data.UserID,
		Category:          data.Category,
		Purpose:           data.Purpose,
		Principal:         data.Principal,
		TermMonths:        data.TermMonths,
		AnnualRatePercent: data.AnnualRatePercent,
		MonthlyPayment:    data.MonthlyPayment,
		TotalRepayment:    data.TotalRepayment,
		TotalInterest:     data.TotalInterest,
		MonthlyIncome:     data.MonthlyIncome,
		Affordable:        data.Affordable,
		BankStatementUrl:  data.BankStatementUrl,
		IdDocumentUrl:     data.IdDocumentUrl,
		Status:            string(data.Status),
		ReviewNote:        data.ReviewNote,
		ReviewedBy:        data.ReviewedBy,
		ReviewedAt:        data.ReviewedAt,
	}
}

func LoanApplicationToEntity(data LoanApplication) *domain.LoanApplication {
	return &domain.LoanApplication{
		ID:                data.ID,
		UserID:            data.UserID,
		Category:          data.Category,
		Purpose:           data.Purpose,
		Principal:         data.Principal,
		TermMonths:        data.TermMonths,
		AnnualRatePercent: data.AnnualRatePercent,
		MonthlyPayment:    data.MonthlyPayment,
		TotalRepayment:    data.TotalRepayment,
		TotalInterest:     data.TotalInterest,
		MonthlyIncome:     data.MonthlyIncome,
		Affordable:        data.Affordable,
		BankStatementUrl:  data.BankStatementUrl,
		IdDocumentUrl:     data.IdDocumentUrl,
		Status:            domain.LoanStatus(data.Status),
		ReviewNote:        data.ReviewNote,
		ReviewedBy:        data.ReviewedBy,
		ReviewedAt:        data.ReviewedAt,
		CreatedAt:         data.CreatedAt,
		UpdatedAt:         data.UpdatedAt,
	}
}

func LoanApplicationsToEntity(data []LoanApplication) []domain.LoanApplication {
	responses := make([]domain.LoanApplication, len(data))
	for i, l := range data {
		responses[i] = *LoanApplicationToEntity(l)
	}

	return responses
}
