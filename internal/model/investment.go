package model

import (
	"github.com/greenfina/greenfina/internal/domain"
)

func InvestmentFromEntity(data *domain.Investment) Investment {
	return Investment{
		ID:                   data.ID,
		UserID:               data.UserID,
		IndexName:            data.IndexName,
		Amount:               data.Amount,
		Units:                data.Units,
		IndexValueAtPurchase: data.IndexValueAtPurchase,
	}
}

func InvestmentsToEntity(data []Investment) []domain.Investment {
	responses := make([]domain.Investment, len(data))
	for i, inv := range data {
		responses[i] = domain.Investment{
			ID:                   inv.ID,
			UserID:               inv.UserID,
			IndexName:            inv.IndexName,
			Amount:               inv.Amount,
			Units:                inv.Units,
			IndexValueAtPurchase: inv.IndexValueAtPurchase,
			CreatedAt:            inv.CreatedAt,
		}
	}

	return responses
}

func InvestmentIndexToEntity(data InvestmentIndex) *domain.InvestmentIndex {
	return &domain.InvestmentIndex{
		Name:      data.Name,
		Value:     data.Value,
		UpdatedAt: data.UpdatedAt,
	}
}
