package port

import (
	"context"

	"underwriting-bot/internal/domain/entity"
)

// ImageClassifier интерфейс классификатора фото объекта
type ImageClassifier interface {
	// Classify возвращает ранжированный по убыванию уверенности список меток
	Classify(ctx context.Context, imageData []byte) ([]entity.Prediction, error)
}
