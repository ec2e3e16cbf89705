//go:build gocv
// +build gocv

package vision

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"underwriting-bot/internal/domain/entity"
	"underwriting-bot/internal/domain/port"
)

// GoCVClassifier запускает ту же ONNX-модель через модуль DNN из OpenCV.
type GoCVClassifier struct {
	mu         sync.Mutex
	net        gocv.Net
	closed     bool
	inputName  string
	outputName string
	labels     []string
	topK       int
}

// NewGoCVClassifier загружает метки и сеть.
func NewGoCVClassifier(cfg Config, logger *zap.Logger) (*GoCVClassifier, error) {
	cfg.setDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("load model %s: empty network", cfg.ModelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("set backend: %w", err)
	}

	logger.Info("image model loaded",
		zap.String("backend", BackendGoCV),
		zap.String("model", cfg.ModelPath),
		zap.Int("classes", len(labels)),
	)

	return &GoCVClassifier{
		net:        net,
		inputName:  cfg.InputName,
		outputName: cfg.OutputName,
		labels:     labels,
		topK:       cfg.TopK,
	}, nil
}

// Classify возвращает ранжированный список меток для изображения.
// Предобработка общая с ONNX-бэкендом, OpenCV только исполняет сеть.
func (c *GoCVClassifier) Classify(ctx context.Context, imageData []byte) ([]entity.Prediction, error) {
	img, _, err := DecodeImage(imageData)
	if err != nil {
		return nil, err
	}
	blob, err := inputBlob(Preprocess(img))
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("classifier is closed")
	}

	c.net.SetInput(blob, c.inputName)
	prob := c.net.Forward(c.outputName)
	defer prob.Close()

	logits, err := prob.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read model output: %w", err)
	}
	logits = append([]float32(nil), logits...)

	return rank(softmax(logits), c.labels, c.topK), nil
}

// inputBlob укладывает тензор NCHW в Mat 1x3x224x224
func inputBlob(pixels []float32) (gocv.Mat, error) {
	blob := gocv.NewMatWithSizes([]int{1, 3, cropSize, cropSize}, gocv.MatTypeCV32F)
	data, err := blob.DataPtrFloat32()
	if err != nil {
		blob.Close()
		return gocv.Mat{}, fmt.Errorf("prepare input blob: %w", err)
	}
	copy(data, pixels)
	return blob, nil
}

// Close освобождает сеть.
func (c *GoCVClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.net.Close()
}

var _ port.ImageClassifier = (*GoCVClassifier)(nil)
