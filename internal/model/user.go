package model

import (
	"github.com/greenfina/greenfina/internal/domain"
)

func UserFromEntity(data *domain.User) User {
	return User{
		ID:            data.ID,
		FullName:      data.FullName,
		Email:         data.Email,
		Phone:         data.Phone,
		Password:      data.Password,
		Role:          string(data.Role),
		MonthlyIncome: data.MonthlyIncome,
	}
}

func UserToEntity(data User) *domain.User {
	return &domain.User{
		ID:            data.ID,
		FullName:      data.FullName,
		Email:         data.Email,
		Phone:         data.Phone,
		Password:      data.Password,
		Role:          domain.Role(data.Role),
		MonthlyIncome: data.MonthlyIncome,
		CreatedAt:     data.CreatedAt,
		UpdatedAt:     data.UpdatedAt,
	}
}
