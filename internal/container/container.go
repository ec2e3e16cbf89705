package container

import (
	"go.uber.org/zap"

	app "underwriting-bot/internal/application"
	"underwriting-bot/internal/domain/port"
	"underwriting-bot/internal/domain/service"
	"underwriting-bot/internal/metrics"
)

type Container struct {
	UserService         *app.UserService
	UnderwritingService *app.UnderwritingService
}

// Deps внешние коллабораторы и инфраструктура
type Deps struct {
	Users          port.UserRepository
	Reader         port.ReportReader
	Classifier     port.ImageClassifier
	Scorer         *service.RiskScorer
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
	MaxUploadBytes int64
}

func New(deps Deps) *Container {
	userService := app.NewUserService(deps.Users)
	underwritingService := app.NewUnderwritingService(userService, deps.Reader, deps.Classifier, deps.Scorer, app.Options{
		MaxUploadBytes: deps.MaxUploadBytes,
		Metrics:        deps.Metrics,
		Logger:         deps.Logger,
	})

	return &Container{
		UserService:         userService,
		UnderwritingService: underwritingService,
	}
}
