package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"underwriting-bot/config"
	telegram "underwriting-bot/internal/api"
	"underwriting-bot/internal/container"
	"underwriting-bot/internal/domain/service"
	"underwriting-bot/internal/httpserver"
	"underwriting-bot/internal/infrastructure/pdf"
	"underwriting-bot/internal/infrastructure/storage"
	"underwriting-bot/internal/infrastructure/vision"
	"underwriting-bot/internal/logger"
	"underwriting-bot/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Извлечение текста из PDF
	reader, err := pdf.New(pdf.Config{Backend: cfg.PDFBackend, Pdftotext: cfg.PdftotextBin}, logg)
	if err != nil {
		logg.Fatal("init pdf reader", zap.Error(err))
	}

	// Классификатор фото: модель грузится один раз, при старте или при первом фото
	classifier, err := vision.New(vision.Config{
		Backend:    cfg.ClassifierBackend,
		ModelPath:  cfg.ModelPath,
		LabelsPath: cfg.LabelsPath,
		OrtLibPath: cfg.OrtLibPath,
		InputName:  cfg.ModelInput,
		OutputName: cfg.ModelOutput,
	}, logg)
	if err != nil {
		logg.Fatal("init classifier", zap.Error(err))
	}
	defer func() {
		if err := classifier.Close(); err != nil {
			logg.Warn("close classifier", zap.Error(err))
		}
	}()
	if cfg.ModelPreload {
		if err := classifier.Warmup(); err != nil {
			logg.Fatal("preload image model", zap.Error(err))
		}
	}

	year := service.ClockYear(time.Now)
	if cfg.ReferenceYear > 0 {
		year = service.FixedYear(cfg.ReferenceYear)
	}

	appContainer := container.New(container.Deps{
		Users:          storage.NewMemoryUserRepository(),
		Reader:         reader,
		Classifier:     classifier,
		Scorer:         service.NewRiskScorer(year),
		Metrics:        m,
		Logger:         logg,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	errCh := make(chan error, 2)

	var srv *httpserver.Server
	if cfg.HTTPAddr != "" {
		srv = httpserver.New(cfg.HTTPAddr, appContainer.UnderwritingService, metrics.Handler(reg), logg)
		go func() { errCh <- srv.ListenAndServe() }()
	}

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, appContainer, logg)
		if err != nil {
			logg.Fatal("create bot", zap.Error(err))
		}
		logg.Info("bot is running")
		go func() { errCh <- bot.Run(ctx) }()
	} else {
		logg.Info("TELEGRAM_TOKEN is empty, bot disabled")
	}

	select {
	case <-ctx.Done():
		logg.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logg.Error("surface stopped", zap.Error(err))
		}
		stop()
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logg.Warn("http shutdown", zap.Error(err))
		}
	}
}
