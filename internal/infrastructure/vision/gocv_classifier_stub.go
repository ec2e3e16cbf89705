//go:build !gocv
// +build !gocv

package vision

import (
	"context"

	"go.uber.org/zap"

	"underwriting-bot/internal/domain/entity"
)

// GoCVClassifier заглушка для сборки без OpenCV.
type GoCVClassifier struct{}

// NewGoCVClassifier возвращает ошибку, если сборка без тега gocv.
func NewGoCVClassifier(cfg Config, logger *zap.Logger) (*GoCVClassifier, error) {
	_ = cfg
	_ = logger
	return nil, ErrNotConfigured
}

// Classify возвращает ошибку, если сборка без тега gocv.
func (c *GoCVClassifier) Classify(ctx context.Context, imageData []byte) ([]entity.Prediction, error) {
	_ = ctx
	_ = imageData
	return nil, ErrNotConfigured
}

// Close ничего не делает.
func (c *GoCVClassifier) Close() error {
	return nil
}
