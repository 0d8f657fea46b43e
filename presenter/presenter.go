package presenter

import (
	"github.com/greenfina/greenfina/config"
	adminhandler "github.com/greenfina/greenfina/internal/handler/admin"
	authhandler "github.com/greenfina/greenfina/internal/handler/auth"
	investmenthandler "github.com/greenfina/greenfina/internal/handler/investment"
	loanhandler "github.com/greenfina/greenfina/internal/handler/loan"
	stokvelahandler "github.com/greenfina/greenfina/internal/handler/stokvela"
	"github.com/greenfina/greenfina/internal/realtime"
	draftrepo "github.com/greenfina/greenfina/internal/repository/draft"
	investmentrepo "github.com/greenfina/greenfina/internal/repository/investment"
	loanrepo "github.com/greenfina/greenfina/internal/repository/loan"
	paymentrepo "github.com/greenfina/greenfina/internal/repository/payment"
	stokvelarepo "github.com/greenfina/greenfina/internal/repository/stokvela"
	userrepo "github.com/greenfina/greenfina/internal/repository/user"
	adminsrv "github.com/greenfina/greenfina/internal/service/admin"
	authsrv "github.com/greenfina/greenfina/internal/service/auth"
	investmentsrv "github.com/greenfina/greenfina/internal/service/investment"
	loansrv "github.com/greenfina/greenfina/internal/service/loan"
	mediasrv "github.com/greenfina/greenfina/internal/service/media"
	stokvelasrv "github.com/greenfina/greenfina/internal/service/stokvela"
	"github.com/greenfina/greenfina/pkg/policy"
	"github.com/greenfina/greenfina/pkg/telemetry"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Presenter struct {
	AuthPresenter       *authhandler.AuthHandler
	LoanPresenter       *loanhandler.LoanHandler
	StokvelaPresenter   *stokvelahandler.StokvelaHandler
	AdminPresenter      *adminhandler.AdminHandler
	InvestmentPresenter *investmenthandler.InvestmentHandler
}

func NewPresenter(
	db *gorm.DB,
	client *redis.Client,
	cld *cloudinary.Cloudinary,
	tel *telemetry.OpenTelemetry,
	cfg *config.Config,
	loanPolicy *policy.Policy,
) Presenter {
	// Repository
	userRepositoryMeter := tel.MeterProvider.Meter("user-repository-meter")
	userRepositoryTracer := tel.TracerProvider.Tracer("user-repository-tracer")
	userRepository := userrepo.NewUserRepository(
		db,
		userRepositoryMeter,
		userRepositoryTracer,
		tel.Log,
	)

	loanRepositoryMeter := tel.MeterProvider.Meter("loan-repository-meter")
	loanRepositoryTracer := tel.TracerProvider.Tracer("loan-repository-tracer")
	loanRepository := loanrepo.NewLoanRepository(
		db,
		loanRepositoryMeter,
		loanRepositoryTracer,
		tel.Log,
	)

	draftRepositoryMeter := tel.MeterProvider.Meter("draft-repository-meter")
	draftRepositoryTracer := tel.TracerProvider.Tracer("draft-repository-tracer")
	draftRepository := draftrepo.NewDraftRepository(
		client,
		cfg.DRAFT_TTL,
		draftRepositoryMeter,
		draftRepositoryTracer,
		tel.Log,
	)

	stokvelaRepositoryMeter := tel.MeterProvider.Meter("stokvela-repository-meter")
	stokvelaRepositoryTracer := tel.TracerProvider.Tracer("stokvela-repository-tracer")
	stokvelaRepository := stokvelarepo.NewStokvelaRepository(
		db,
		stokvelaRepositoryMeter,
		stokvelaRepositoryTracer,
		tel.Log,
	)

	paymentRepositoryMeter := tel.MeterProvider.Meter("payment-repository-meter")
	paymentRepositoryTracer := tel.TracerProvider.Tracer("payment-repository-tracer")
	paymentRepository := paymentrepo.NewPaymentRepository(
		db,
		paymentRepositoryMeter,
		paymentRepositoryTracer,
		tel.Log,
	)

	investmentRepositoryMeter := tel.MeterProvider.Meter("investment-repository-meter")
	investmentRepositoryTracer := tel.TracerProvider.Tracer("investment-repository-tracer")
	investmentRepository := investmentrepo.NewInvestmentRepository(
		db,
		investmentRepositoryMeter,
		investmentRepositoryTracer,
		tel.Log,
	)

	feed := realtime.NewFeed(client, tel.Log)

	// Service
	mediaServiceMeter := tel.MeterProvider.Meter("media-service-meter")
	mediaServiceTracer := tel.TracerProvider.Tracer("media-service-trace")
	mediaService := mediasrv.NewMediaService(
		cld,
		mediaServiceMeter,
		mediaServiceTracer,
		tel.Log,
	)

	authServiceMeter := tel.MeterProvider.Meter("auth-service-meter")
	authServiceTracer := tel.TracerProvider.Tracer("auth-service-trace")
	authService := authsrv.NewAuthService(
		cfg.JWT_SECRET_KEY,
		userRepository,
		authServiceMeter,
		authServiceTracer,
		tel.Log,
	)

	loanServiceMeter := tel.MeterProvider.Meter("loan-service-meter")
	loanServiceTracer := tel.TracerProvider.Tracer("loan-service-trace")
	loanService := loansrv.NewLoanService(
		loanRepository,
		draftRepository,
		mediaService,
		loanPolicy,
		cfg.CLOUDINARY_FOLDER,
		loanServiceMeter,
		loanServiceTracer,
		tel.Log,
	)

	stokvelaServiceMeter := tel.MeterProvider.Meter("stokvela-service-meter")
	stokvelaServiceTracer := tel.TracerProvider.Tracer("stokvela-service-trace")
	stokvelaService := stokvelasrv.NewStokvelaService(
		db,
		stokvelaRepository,
		paymentRepository,
		stokvelaServiceMeter,
		stokvelaServiceTracer,
		tel.Log,
	)

	adminServiceMeter := tel.MeterProvider.Meter("admin-service-meter")
	adminServiceTracer := tel.TracerProvider.Tracer("admin-service-trace")
	adminService := adminsrv.NewAdminService(
		db,
		loanRepository,
		paymentRepository,
		stokvelaRepository,
		investmentRepository,
		feed,
		adminServiceMeter,
		adminServiceTracer,
		tel.Log,
	)

	investmentServiceMeter := tel.MeterProvider.Meter("investment-service-meter")
	investmentServiceTracer := tel.TracerProvider.Tracer("investment-service-trace")
	investmentService := investmentsrv.NewInvestmentService(
		investmentRepository,
		"",
		investmentServiceMeter,
		investmentServiceTracer,
		tel.Log,
	)

	// Handler
	secureCookie := !cfg.DEVELOPMENT_MODE

	authHandlerMeter := tel.MeterProvider.Meter("auth-handler-meter")
	authHandlerTracer := tel.TracerProvider.Tracer("auth-handler-trace")
	authHandler := authhandler.NewAuthHandler(
		authService,
		secureCookie,
		authHandlerMeter,
		authHandlerTracer,
		tel.Log,
	)

	loanHandlerMeter := tel.MeterProvider.Meter("loan-handler-meter")
	loanHandlerTracer := tel.TracerProvider.Tracer("loan-handler-trace")
	loanHandler := loanhandler.NewLoanHandler(
		loanService,
		loanHandlerMeter,
		loanHandlerTracer,
		tel.Log,
	)

	stokvelaHandlerMeter := tel.MeterProvider.Meter("stokvela-handler-meter")
	stokvelaHandlerTracer := tel.TracerProvider.Tracer("stokvela-handler-trace")
	stokvelaHandler := stokvelahandler.NewStokvelaHandler(
		stokvelaService,
		mediaService,
		cfg.CLOUDINARY_FOLDER,
		stokvelaHandlerMeter,
		stokvelaHandlerTracer,
		tel.Log,
	)

	adminHandlerMeter := tel.MeterProvider.Meter("admin-handler-meter")
	adminHandlerTracer := tel.TracerProvider.Tracer("admin-handler-trace")
	adminHandler := adminhandler.NewAdminHandler(
		adminService,
		adminHandlerMeter,
		adminHandlerTracer,
		tel.Log,
	)

	investmentHandlerMeter := tel.MeterProvider.Meter("investment-handler-meter")
	investmentHandlerTracer := tel.TracerProvider.Tracer("investment-handler-trace")
	investmentHandler := investmenthandler.NewInvestmentHandler(
		investmentService,
		feed,
		investmentHandlerMeter,
		investmentHandlerTracer,
		tel.Log,
	)

	return Presenter{
		AuthPresenter:       authHandler,
		LoanPresenter:       loanHandler,
		StokvelaPresenter:   stokvelaHandler,
		AdminPresenter:      adminHandler,
		InvestmentPresenter: investmentHandler,
	}
}
