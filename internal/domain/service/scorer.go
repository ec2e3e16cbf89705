package service

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"underwriting-bot/internal/domain/entity"
)

const (
	maxBuildingAge   = 50
	buildingAgePts   = 2
	maxSquareFootage = 4000
	footprintPts     = 1
	visibleDamagePts = 2
)

// Метки классификатора, которые считаются повреждением. Сравнение точное, без поиска подстроки.
var damageLabels = map[string]struct{}{
	"broken":  {},
	"damaged": {},
	"crack":   {},
}

// YearSource отдаёт год, от которого считается возраст здания
type YearSource func() int

// FixedYear всегда возвращает заданный год
func FixedYear(year int) YearSource {
	return func() int { return year }
}

// ClockYear берёт текущий год из часов
func ClockYear(now func() time.Time) YearSource {
	return func() int { return now().Year() }
}

// RiskScorer начисляет баллы по фиксированным правилам и переводит их в категорию.
type RiskScorer struct {
	year YearSource
}

// NewRiskScorer создаёт скорер с источником опорного года
func NewRiskScorer(year YearSource) *RiskScorer {
	if year == nil {
		year = ClockYear(time.Now)
	}
	return &RiskScorer{year: year}
}

// ReferenceYear возвращает опорный год на текущий момент
func (s *RiskScorer) ReferenceYear() int {
	return s.year()
}

// Assess оценивает риск и возвращает баллы, сработавшие правила и категорию.
func (s *RiskScorer) Assess(fields entity.ExtractedFields, imageLabel string) entity.Assessment {
	year := s.year()
	score, signals := scoreRisk(fields, imageLabel, year)
	return entity.Assessment{
		ID:            uuid.NewString(),
		Category:      entity.CategoryFromScore(score),
		Score:         score,
		Signals:       signals,
		ReferenceYear: year,
	}
}

// AssessRisk чистая функция скоринга: одинаковые входы дают одинаковую категорию.
func AssessRisk(fields entity.ExtractedFields, imageLabel string, currentYear int) entity.RiskCategory {
	score, _ := scoreRisk(fields, imageLabel, currentYear)
	return entity.CategoryFromScore(score)
}

func scoreRisk(fields entity.ExtractedFields, imageLabel string, currentYear int) (int, []string) {
	score := 0
	signals := make([]string, 0, 3)

	// Возраст здания
	if built, ok := fields.Get(entity.FieldYearBuilt); ok {
		if currentYear-built > maxBuildingAge {
			score += buildingAgePts
			signals = append(signals, entity.SignalBuildingAge)
		}
	}

	// Площадь
	if sqft, ok := fields.Get(entity.FieldSquareFootage); ok && sqft > maxSquareFootage {
		score += footprintPts
		signals = append(signals, entity.SignalLargeFootprint)
	}

	// Повреждения на фото
	if _, ok := damageLabels[strings.ToLower(imageLabel)]; ok {
		score += visibleDamagePts
		signals = append(signals, entity.SignalVisibleDamage)
	}

	return score, signals
}
