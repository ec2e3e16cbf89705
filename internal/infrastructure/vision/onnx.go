package vision

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"underwriting-bot/internal/domain/entity"
	"underwriting-bot/internal/domain/port"
)

// ONNXClassifier запускает ResNet-18 через ONNX Runtime.
// Тензоры привязаны к сессии, поэтому запуски сериализуются.
type ONNXClassifier struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	labels  []string
	topK    int
	logger  *zap.Logger
}

// NewONNXClassifier загружает метки и модель.
func NewONNXClassifier(cfg Config, logger *zap.Logger) (*ONNXClassifier, error) {
	cfg.setDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	if cfg.OrtLibPath != "" {
		ort.SetSharedLibraryPath(cfg.OrtLibPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("init onnxruntime: %w", err)
		}
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, cropSize, cropSize))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(labels))))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.Value{input}, []ort.Value{output}, nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("load model %s: %w", cfg.ModelPath, err)
	}

	logger.Info("image model loaded",
		zap.String("backend", BackendONNX),
		zap.String("model", cfg.ModelPath),
		zap.Int("classes", len(labels)),
	)

	return &ONNXClassifier{
		session: session,
		input:   input,
		output:  output,
		labels:  labels,
		topK:    cfg.TopK,
		logger:  logger,
	}, nil
}

// Classify возвращает ранжированный список меток для изображения.
func (c *ONNXClassifier) Classify(ctx context.Context, imageData []byte) ([]entity.Prediction, error) {
	img, _, err := DecodeImage(imageData)
	if err != nil {
		return nil, err
	}
	pixels := Preprocess(img)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, fmt.Errorf("classifier is closed")
	}

	copy(c.input.GetData(), pixels)
	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("run model: %w", err)
	}
	logits := append([]float32(nil), c.output.GetData()...)

	return rank(softmax(logits), c.labels, c.topK), nil
}

// Close освобождает ресурсы ONNX Runtime.
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	var firstErr error
	if err := c.session.Destroy(); err != nil {
		firstErr = err
	}
	if err := c.input.Destroy(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.output.Destroy(); err != nil && firstErr == nil {
		firstErr = err
	}
	c.session = nil
	if err := ort.DestroyEnvironment(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

var _ port.ImageClassifier = (*ONNXClassifier)(nil)
