package service

import (
	"math"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/repository"
)

// Page wraps one page of results with the normalized paging values.
func Page(data any, total int64, params domain.Params) *domain.Paginated {
	page, limit, _ := repository.Paginate(params.Page, params.Limit)
	return &domain.Paginated{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}
}
