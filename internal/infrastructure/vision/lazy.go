package vision

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"underwriting-bot/internal/domain/entity"
	"underwriting-bot/internal/domain/port"
)

// Loader создаёт классификатор; вызывается один раз при первом использовании
type Loader func() (port.ImageClassifier, error)

// LazyClassifier загружает модель при первом запросе и дальше переиспользует её.
// Неудачная загрузка повторяется на следующем запросе.
type LazyClassifier struct {
	mu     sync.Mutex
	load   Loader
	loaded port.ImageClassifier
}

// NewLazyClassifier оборачивает загрузчик
func NewLazyClassifier(load Loader) *LazyClassifier {
	return &LazyClassifier{load: load}
}

// Warmup загружает модель заранее
func (l *LazyClassifier) Warmup() error {
	_, err := l.get()
	return err
}

// Classify загружает модель при необходимости и делегирует ей запрос.
func (l *LazyClassifier) Classify(ctx context.Context, imageData []byte) ([]entity.Prediction, error) {
	c, err := l.get()
	if err != nil {
		return nil, err
	}
	return c.Classify(ctx, imageData)
}

// Close закрывает загруженную модель, если она умеет закрываться.
func (l *LazyClassifier) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded == nil {
		return nil
	}
	c := l.loaded
	l.loaded = nil
	if closer, ok := c.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (l *LazyClassifier) get() (port.ImageClassifier, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded != nil {
		return l.loaded, nil
	}
	c, err := l.load()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	l.loaded = c
	return c, nil
}

// New собирает ленивый классификатор под выбранный бэкенд
func New(cfg Config, logger *zap.Logger) (*LazyClassifier, error) {
	cfg.setDefaults()
	switch cfg.Backend {
	case BackendONNX:
		return NewLazyClassifier(func() (port.ImageClassifier, error) {
			c, err := NewONNXClassifier(cfg, logger)
			if err != nil {
				return nil, err
			}
			return c, nil
		}), nil
	case BackendGoCV:
		return NewLazyClassifier(func() (port.ImageClassifier, error) {
			c, err := NewGoCVClassifier(cfg, logger)
			if err != nil {
				return nil, err
			}
			return c, nil
		}), nil
	default:
		return nil, fmt.Errorf("unknown classifier backend %q", cfg.Backend)
	}
}

var _ port.ImageClassifier = (*LazyClassifier)(nil)
