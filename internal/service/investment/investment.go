package investmentsrv

import (
	"context"
	"fmt"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/repository"
	"github.com/greenfina/greenfina/internal/service"
	"github.com/greenfina/greenfina/pkg/common"
	"github.com/greenfina/greenfina/pkg/instrument"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// unitPlaces matches the precision of the units column.
const unitPlaces = 8

type investmentService struct {
	investmentRepository repository.InvestmentRepository
	indexName            string

	ins      *instrument.Instruments
	log      *zap.Logger
	invested metric.Float64Counter
}

func (i *investmentService) begin(ctx context.Context, name, operation string) (context.Context, *instrument.Op) {
	return i.ins.Begin(ctx, "service.investment."+name,
		attribute.String("operation", operation),
		attribute.String("service", "investment"),
	)
}

func (i *investmentService) index(ctx context.Context) (*domain.InvestmentIndex, error) {
	index, err := i.investmentRepository.CurrentIndex(ctx, i.indexName)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	if index == nil || index.Value <= 0 {
		return nil, common.ErrIndexNotFound
	}
	return index, nil
}

// Invest implements service.InvestmentServices. Units are bought at the
// current index value.
func (i *investmentService) Invest(ctx context.Context, userID uint64, amount float64) (_ *domain.Investment, err error) {
	ctx, op := i.begin(ctx, "Invest", "invest")
	defer func() { op.End(err) }()

	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}

	index, err := i.index(ctx)
	if err != nil {
		return nil, err
	}

	units, _ := decimal.NewFromFloat(amount).
		DivRound(decimal.NewFromFloat(index.Value), unitPlaces).
		Float64()

	created, err := i.investmentRepository.Create(ctx, &domain.Investment{
		UserID:               userID,
		IndexName:            index.Name,
		Amount:               amount,
		Units:                units,
		IndexValueAtPurchase: index.Value,
	})
	if err != nil {
		return nil, fmt.Errorf("create investment: %w", err)
	}

	i.invested.Add(ctx, amount, metric.WithAttributes(attribute.String("index", index.Name)))
	i.log.Info("Investment placed", op.Fields(
		zap.Uint64("user_id", userID),
		zap.Float64("amount", amount),
		zap.Float64("units", units),
	)...)
	return created, nil
}

// Portfolio implements service.InvestmentServices. Holdings are valued at
// the current index; totals are summed in decimal.
func (i *investmentService) Portfolio(ctx context.Context, userID uint64) (_ *domain.Portfolio, err error) {
	ctx, op := i.begin(ctx, "Portfolio", "portfolio")
	defer func() { op.End(err) }()

	investments, err := i.investmentRepository.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}

	portfolio := &domain.Portfolio{Holdings: make([]domain.Holding, 0, len(investments))}
	if len(investments) == 0 {
		return portfolio, nil
	}

	index, err := i.index(ctx)
	if err != nil {
		return nil, err
	}

	return Value(investments, index.Value), nil
}

// Value prices every investment at indexValue.
func Value(investments []domain.Investment, indexValue float64) *domain.Portfolio {
	price := decimal.NewFromFloat(indexValue)
	totalInvested := decimal.Zero
	totalValue := decimal.Zero

	holdings := make([]domain.Holding, len(investments))
	for n, inv := range investments {
		amount := decimal.NewFromFloat(inv.Amount)
		value := decimal.NewFromFloat(inv.Units).Mul(price)

		current, _ := value.Float64()
		gain, _ := value.Sub(amount).Float64()
		holdings[n] = domain.Holding{Investment: inv, CurrentValue: current, Gain: gain}

		totalInvested = totalInvested.Add(amount)
		totalValue = totalValue.Add(value)
	}

	invested, _ := totalInvested.Float64()
	current, _ := totalValue.Float64()
	gain, _ := totalValue.Sub(totalInvested).Float64()

	return &domain.Portfolio{
		Holdings:      holdings,
		TotalInvested: invested,
		CurrentValue:  current,
		TotalGain:     gain,
	}
}

// CurrentIndex implements service.InvestmentServices.
func (i *investmentService) CurrentIndex(ctx context.Context) (_ *domain.InvestmentIndex, err error) {
	ctx, op := i.begin(ctx, "CurrentIndex", "current_index")
	defer func() { op.End(err) }()

	return i.index(ctx)
}

func NewInvestmentService(
	investmentRepository repository.InvestmentRepository,
	indexName string,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) service.InvestmentServices {
	invested, _ := meter.Float64Counter(
		"service.investment.invested",
		metric.WithDescription("Total amount invested"),
		metric.WithUnit("{ZAR}"),
	)

	if indexName == "" {
		indexName = domain.DefaultIndexName
	}

	return &investmentService{
		investmentRepository: investmentRepository,
		indexName:            indexName,
		ins:                  service.NewInstruments(meter, tracer),
		log:                  log,
		invested:             invested,
	}
}
