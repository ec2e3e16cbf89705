package app

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"underwriting-bot/internal/domain/entity"
	"underwriting-bot/internal/domain/service"
	"underwriting-bot/internal/infrastructure/storage"
	"underwriting-bot/internal/metrics"
)

type fakeReader struct {
	text  string
	err   error
	calls int
}

func (f *fakeReader) ReadText(context.Context, []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeClassifier struct {
	preds []entity.Prediction
	err   error
	calls int
}

func (f *fakeClassifier) Classify(context.Context, []byte) ([]entity.Prediction, error) {
	f.calls++
	return f.preds, f.err
}

func newService(t *testing.T, reader *fakeReader, classifier *fakeClassifier) (*UnderwritingService, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	users := NewUserService(storage.NewMemoryUserRepository())
	svc := NewUnderwritingService(users, reader, classifier, service.NewRiskScorer(service.FixedYear(2025)), Options{
		MaxUploadBytes: 1024,
		Metrics:        metrics.New(reg),
	})
	return svc, reg
}

func TestUnderwritingService_ReportThenImage(t *testing.T) {
	reader := &fakeReader{text: "Year Built: 1960\nSquare Footage: 5,000"}
	classifier := &fakeClassifier{preds: []entity.Prediction{{Label: "cracked wall", Score: 0.61}, {Label: "crack", Score: 0.3}}}
	svc, reg := newService(t, reader, classifier)
	ctx := context.Background()

	eval, err := svc.AcceptReport(ctx, 1, 10, []byte("%PDF"))
	require.NoError(t, err)
	require.False(t, eval.Ready())
	require.Equal(t, []entity.Input{entity.InputImage}, eval.Missing)
	require.Equal(t, entity.ExtractedFields{entity.FieldYearBuilt: 1960, entity.FieldSquareFootage: 5000}, eval.Report.Fields)

	eval, err = svc.AcceptImage(ctx, 1, 10, []byte("jpeg"))
	require.NoError(t, err)
	require.True(t, eval.Ready())
	require.Empty(t, eval.Missing)
	require.Equal(t, "cracked wall", eval.Image.Label)
	require.Len(t, eval.Predictions, 2)

	// только верхняя метка идёт в скоринг: "cracked wall" не совпадает точно с "crack"
	require.Equal(t, entity.RiskHigh, eval.Assessment.Category)
	require.Equal(t, 3, eval.Assessment.Score)
	require.Equal(t, 2025, eval.Assessment.ReferenceYear)

	require.Equal(t, 1.0, counterValue(t, reg, "underwriting_assessments_total"))
}

func TestUnderwritingService_ImageThenReport(t *testing.T) {
	reader := &fakeReader{text: "nothing useful"}
	classifier := &fakeClassifier{preds: []entity.Prediction{{Label: "Damaged", Score: 0.9}}}
	svc, _ := newService(t, reader, classifier)
	ctx := context.Background()

	eval, err := svc.AcceptImage(ctx, 2, 20, []byte("png"))
	require.NoError(t, err)
	require.Equal(t, []entity.Input{entity.InputReport}, eval.Missing)
	require.Nil(t, eval.Assessment)

	eval, err = svc.AcceptReport(ctx, 2, 20, []byte("%PDF"))
	require.NoError(t, err)
	require.Empty(t, eval.Report.Fields)
	require.Equal(t, entity.RiskMedium, eval.Assessment.Category)
	require.Equal(t, []string{entity.SignalVisibleDamage}, eval.Assessment.Signals)
}

func TestUnderwritingService_EvaluateIsIdempotent(t *testing.T) {
	svc, _ := newService(t, &fakeReader{}, &fakeClassifier{})
	user := entity.NewUser(3, 30)
	user.AttachReport(&entity.ReportAnalysis{Fields: entity.ExtractedFields{entity.FieldYearBuilt: 1960}})
	user.AttachImage(&entity.ImageLabel{Label: "undamaged"})

	first := svc.Evaluate(user)
	second := svc.Evaluate(user)
	require.Equal(t, entity.RiskMedium, first.Assessment.Category)
	require.Equal(t, first.Assessment.Category, second.Assessment.Category)
	require.Equal(t, first.Assessment.Score, second.Assessment.Score)
}

func TestUnderwritingService_ReaderErrorKeepsSession(t *testing.T) {
	reader := &fakeReader{text: "Year Built: 1900"}
	classifier := &fakeClassifier{preds: []entity.Prediction{{Label: "house", Score: 0.5}}}
	svc, _ := newService(t, reader, classifier)
	ctx := context.Background()

	_, err := svc.AcceptReport(ctx, 4, 40, []byte("%PDF"))
	require.NoError(t, err)

	reader.err = errors.New("broken xref")
	_, err = svc.AcceptReport(ctx, 4, 40, []byte("%PDF"))
	require.ErrorContains(t, err, "extract report text")

	user, err := svc.users.Get(ctx, 4, 40)
	require.NoError(t, err)
	require.Equal(t, 1900, user.Report.Fields[entity.FieldYearBuilt])
}

func TestUnderwritingService_UploadLimits(t *testing.T) {
	reader := &fakeReader{}
	classifier := &fakeClassifier{}
	svc, _ := newService(t, reader, classifier)
	ctx := context.Background()

	_, err := svc.AcceptReport(ctx, 5, 50, make([]byte, 2048))
	require.ErrorIs(t, err, ErrTooLarge)
	_, err = svc.AcceptImage(ctx, 5, 50, nil)
	require.ErrorIs(t, err, ErrEmptyUpload)
	require.Zero(t, reader.calls)
	require.Zero(t, classifier.calls)
}

func TestUnderwritingService_NoPredictions(t *testing.T) {
	svc, _ := newService(t, &fakeReader{}, &fakeClassifier{})
	_, err := svc.AcceptImage(context.Background(), 6, 60, []byte("jpeg"))
	require.ErrorIs(t, err, ErrNoPredictions)
}

func TestUnderwritingService_Assess(t *testing.T) {
	reader := &fakeReader{text: "Year Built: 1960"}
	classifier := &fakeClassifier{preds: []entity.Prediction{{Label: "crack", Score: 0.8}}}
	svc, _ := newService(t, reader, classifier)
	ctx := context.Background()

	eval, err := svc.Assess(ctx, []byte("%PDF"), []byte("jpeg"))
	require.NoError(t, err)
	require.Equal(t, entity.RiskHigh, eval.Assessment.Category)

	eval, err = svc.Assess(ctx, nil, []byte("jpeg"))
	require.NoError(t, err)
	require.False(t, eval.Ready())
	require.Equal(t, []entity.Input{entity.InputReport}, eval.Missing)

	eval, err = svc.Assess(ctx, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []entity.Input{entity.InputReport, entity.InputImage}, eval.Missing)
}

func TestUnderwritingService_NotConfigured(t *testing.T) {
	users := NewUserService(storage.NewMemoryUserRepository())
	svc := NewUnderwritingService(users, nil, nil, nil, Options{})

	_, err := svc.AcceptReport(context.Background(), 1, 1, []byte("%PDF"))
	require.Error(t, err)
	_, err = svc.AcceptImage(context.Background(), 1, 1, []byte("jpeg"))
	require.Error(t, err)
}

// counterValue суммирует все серии счётчика в реестре
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
