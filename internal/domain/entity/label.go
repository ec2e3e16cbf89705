package entity

import "fmt"

// Prediction одна строка ранжированного ответа классификатора
type Prediction struct {
	Label string
	Score float64
}

// ImageLabel верхняя метка классификатора для фото объекта.
// Уверенность показывается пользователю, но в скоринге не участвует.
type ImageLabel struct {
	Label      string
	Confidence float64
}

// TopLabel берёт первую строку ранжированного списка
func TopLabel(preds []Prediction) (ImageLabel, bool) {
	if len(preds) == 0 {
		return ImageLabel{}, false
	}
	return ImageLabel{Label: preds[0].Label, Confidence: preds[0].Score}, true
}

// String форматирует метку с уверенностью до двух знаков
func (l ImageLabel) String() string {
	return fmt.Sprintf("%s (%.2f)", l.Label, l.Confidence)
}
