package repository

import (
	"context"

	"github.com/greenfina/greenfina/internal/domain"
)

// Finders return nil, nil when the row does not exist.

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uint64) (*domain.User, error)
}

type LoanRepository interface {
	Create(ctx context.Context, loan *domain.LoanApplication) (*domain.LoanApplication, error)
	FindByID(ctx context.Context, id uint64) (*domain.LoanApplication, error)
	FindByIDForUpdate(ctx context.Context, id uint64) (*domain.LoanApplication, error)
	FindPaginatedByUser(ctx context.Context, userID uint64, params domain.Params) ([]domain.LoanApplication, int64, error)
	FindPaginated(ctx context.Context, params domain.Params) ([]domain.LoanApplication, int64, error)
	UpdateReview(ctx context.Context, loan *domain.LoanApplication) error
}

type StokvelaRepository interface {
	CreateGroup(ctx context.Context, group *domain.StokvelaGroup) (*domain.StokvelaGroup, error)
	FindGroupByID(ctx context.Context, id uint64) (*domain.StokvelaGroup, error)
	FindGroupByIDForUpdate(ctx context.Context, id uint64) (*domain.StokvelaGroup, error)
	ListGroups(ctx context.Context, params domain.Params) ([]domain.StokvelaGroup, int64, error)
	AddMember(ctx context.Context, member *domain.StokvelaMember) (*domain.StokvelaMember, error)
	FindMembersByGroup(ctx context.Context, groupID uint64) ([]domain.StokvelaMember, error)
	FindMembersByGroupForUpdate(ctx context.Context, groupID uint64) ([]domain.StokvelaMember, error)
	FindMemberByGroupAndUser(ctx context.Context, groupID, userID uint64) (*domain.StokvelaMember, error)
	FindMemberByID(ctx context.Context, id uint64) (*domain.StokvelaMember, error)
	UpdateMember(ctx context.Context, member *domain.StokvelaMember) error
	UpdatePositions(ctx context.Context, members []domain.StokvelaMember) error
	AddContribution(ctx context.Context, memberID uint64, amount float64) error
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.StokvelaPayment) (*domain.StokvelaPayment, error)
	FindByID(ctx context.Context, id uint64) (*domain.StokvelaPayment, error)
	FindByIDForUpdate(ctx context.Context, id uint64) (*domain.StokvelaPayment, error)
	FindPendingByMember(ctx context.Context, memberID uint64) (*domain.StokvelaPayment, error)
	FindPaginatedByGroup(ctx context.Context, groupID uint64, params domain.Params) ([]domain.StokvelaPayment, int64, error)
	FindPaginated(ctx context.Context, params domain.Params) ([]domain.StokvelaPayment, int64, error)
	UpdateStatus(ctx context.Context, payment *domain.StokvelaPayment) error
}

type InvestmentRepository interface {
	Create(ctx context.Context, investment *domain.Investment) (*domain.Investment, error)
	FindByUser(ctx context.Context, userID uint64) ([]domain.Investment, error)
	CurrentIndex(ctx context.Context, name string) (*domain.InvestmentIndex, error)
	UpsertIndex(ctx context.Context, index *domain.InvestmentIndex) (*domain.InvestmentIndex, error)
}

type DraftRepository interface {
	Get(ctx context.Context, userID uint64) (*domain.LoanDraft, error)
	Save(ctx context.Context, draft *domain.LoanDraft) error
	Delete(ctx context.Context, userID uint64) error
}

// Paginate normalizes page and limit the way every list endpoint does.
func Paginate(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit, (page - 1) * limit
}
