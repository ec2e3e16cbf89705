package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"underwriting-bot/internal/domain/entity"
	"underwriting-bot/internal/domain/port"
	"underwriting-bot/internal/domain/service"
	"underwriting-bot/internal/metrics"
)

var (
	ErrTooLarge      = errors.New("upload exceeds size limit")
	ErrEmptyUpload   = errors.New("empty upload")
	ErrNoPredictions = errors.New("classifier returned no labels")
)

const (
	stagePDF      = "pdf"
	stageClassify = "classify"
)

// Evaluation состояние оценки после очередной загрузки.
// Assessment заполнен только когда есть и отчёт, и фото.
type Evaluation struct {
	Report      *entity.ReportAnalysis
	Image       *entity.ImageLabel
	Predictions []entity.Prediction // полный ответ классификатора, только для свежего фото
	Missing     []entity.Input
	Assessment  *entity.Assessment
}

// Ready сообщает, выдана ли категория риска
func (e *Evaluation) Ready() bool {
	return e.Assessment != nil
}

// Options дополнительные зависимости сервиса
type Options struct {
	MaxUploadBytes int64
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
}

type UnderwritingService struct {
	users      *UserService
	reader     port.ReportReader
	classifier port.ImageClassifier
	scorer     *service.RiskScorer
	metrics    *metrics.Metrics
	logger     *zap.Logger
	maxUpload  int64
}

// NewUnderwritingService создаёт сервис, который ведёт пользователя от загрузок к категории риска.
func NewUnderwritingService(users *UserService, reader port.ReportReader, classifier port.ImageClassifier, scorer *service.RiskScorer, opts Options) *UnderwritingService {
	if scorer == nil {
		scorer = service.NewRiskScorer(nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &UnderwritingService{
		users:      users,
		reader:     reader,
		classifier: classifier,
		scorer:     scorer,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		maxUpload:  opts.MaxUploadBytes,
	}
}

// MaxUploadBytes лимит на один файл; 0 = без лимита
func (s *UnderwritingService) MaxUploadBytes() int64 {
	return s.maxUpload
}

// AnalyzeReport извлекает текст PDF и поля из него.
func (s *UnderwritingService) AnalyzeReport(ctx context.Context, pdfData []byte) (*entity.ReportAnalysis, error) {
	if err := s.checkUpload(pdfData); err != nil {
		s.metrics.ObserveUpload(entity.InputReport, metrics.OutcomeRejected)
		return nil, err
	}
	if s.reader == nil {
		return nil, errors.New("report reader is not configured")
	}

	start := time.Now()
	text, err := s.reader.ReadText(ctx, pdfData)
	s.metrics.ObserveStage(stagePDF, time.Since(start))
	if err != nil {
		s.metrics.ObserveUpload(entity.InputReport, metrics.OutcomeError)
		return nil, fmt.Errorf("extract report text: %w", err)
	}

	fields := service.ExtractFields(text)
	s.metrics.ObserveUpload(entity.InputReport, metrics.OutcomeOK)
	s.metrics.ObserveFields(fields)
	s.logger.Debug("report analyzed", zap.Int("chars", len(text)), zap.Int("fields", len(fields)))

	return &entity.ReportAnalysis{Text: text, Fields: fields}, nil
}

// ClassifyImage классифицирует фото и возвращает верхнюю метку вместе с полным списком.
func (s *UnderwritingService) ClassifyImage(ctx context.Context, imageData []byte) (*entity.ImageLabel, []entity.Prediction, error) {
	if err := s.checkUpload(imageData); err != nil {
		s.metrics.ObserveUpload(entity.InputImage, metrics.OutcomeRejected)
		return nil, nil, err
	}
	if s.classifier == nil {
		return nil, nil, errors.New("image classifier is not configured")
	}

	start := time.Now()
	preds, err := s.classifier.Classify(ctx, imageData)
	s.metrics.ObserveStage(stageClassify, time.Since(start))
	if err != nil {
		s.metrics.ObserveUpload(entity.InputImage, metrics.OutcomeError)
		return nil, nil, fmt.Errorf("classify image: %w", err)
	}

	top, ok := entity.TopLabel(preds)
	if !ok {
		s.metrics.ObserveUpload(entity.InputImage, metrics.OutcomeError)
		return nil, nil, ErrNoPredictions
	}
	s.metrics.ObserveUpload(entity.InputImage, metrics.OutcomeOK)
	s.logger.Debug("image classified", zap.String("label", top.Label), zap.Float64("confidence", top.Confidence))

	return &top, preds, nil
}

// AcceptReport разбирает отчёт, кладёт его в сессию пользователя и пересчитывает оценку.
// При ошибке сессия не меняется.
func (s *UnderwritingService) AcceptReport(ctx context.Context, userID, chatID int64, pdfData []byte) (*Evaluation, error) {
	report, err := s.AnalyzeReport(ctx, pdfData)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	user.AttachReport(report)
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	eval := s.Evaluate(user)
	s.record(eval, zap.Int64("user_id", userID))
	return eval, nil
}

// AcceptImage классифицирует фото, кладёт метку в сессию и пересчитывает оценку.
func (s *UnderwritingService) AcceptImage(ctx context.Context, userID, chatID int64, imageData []byte) (*Evaluation, error) {
	label, preds, err := s.ClassifyImage(ctx, imageData)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	user.AttachImage(label)
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	eval := s.Evaluate(user)
	eval.Predictions = preds
	s.record(eval, zap.Int64("user_id", userID))
	return eval, nil
}

// Assess разовая оценка без сессии. Пустой вход считается недостающим, а не ошибкой.
func (s *UnderwritingService) Assess(ctx context.Context, pdfData, imageData []byte) (*Evaluation, error) {
	session := entity.NewUser(0, 0)
	var preds []entity.Prediction

	if len(pdfData) > 0 {
		report, err := s.AnalyzeReport(ctx, pdfData)
		if err != nil {
			return nil, err
		}
		session.AttachReport(report)
	}
	if len(imageData) > 0 {
		label, p, err := s.ClassifyImage(ctx, imageData)
		if err != nil {
			return nil, err
		}
		session.AttachImage(label)
		preds = p
	}

	eval := s.Evaluate(session)
	eval.Predictions = preds
	s.record(eval)
	return eval, nil
}

// Evaluate считает оценку по текущей сессии. Повторный вызов с теми же данными даёт ту же категорию.
func (s *UnderwritingService) Evaluate(user *entity.User) *Evaluation {
	eval := &Evaluation{
		Report:  user.Report,
		Image:   user.Image,
		Missing: user.Missing(),
	}
	if len(eval.Missing) > 0 {
		return eval
	}

	assessment := s.scorer.Assess(user.Report.Fields, user.Image.Label)
	eval.Assessment = &assessment
	return eval
}

func (s *UnderwritingService) record(eval *Evaluation, fields ...zap.Field) {
	if !eval.Ready() {
		missing := make([]string, 0, len(eval.Missing))
		for _, in := range eval.Missing {
			missing = append(missing, string(in))
		}
		s.logger.Info("assessment withheld", append(fields, zap.Strings("missing", missing))...)
		return
	}

	a := eval.Assessment
	s.metrics.ObserveAssessment(a.Category)
	s.logger.Info("risk assessed", append(fields,
		zap.String("assessment_id", a.ID),
		zap.String("category", string(a.Category)),
		zap.Int("score", a.Score),
		zap.Strings("signals", a.Signals),
		zap.Int("reference_year", a.ReferenceYear),
	)...)
}

func (s *UnderwritingService) checkUpload(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyUpload
	}
	if s.maxUpload > 0 && int64(len(data)) > s.maxUpload {
		return fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(data), s.maxUpload)
	}
	return nil
}
