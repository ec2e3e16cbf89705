package entity

// RiskCategory итоговая категория риска
type RiskCategory string

const (
	RiskLow    RiskCategory = "Low Risk"
	RiskMedium RiskCategory = "Medium Risk"
	RiskHigh   RiskCategory = "High Risk"
)

// Сигналы сработавших правил скоринга
const (
	SignalBuildingAge    = "building_age"
	SignalLargeFootprint = "large_footprint"
	SignalVisibleDamage  = "visible_damage"
)

// CategoryFromScore переводит сумму баллов в категорию
func CategoryFromScore(score int) RiskCategory {
	switch {
	case score >= 3:
		return RiskHigh
	case score == 2:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Assessment результат одной оценки.
type Assessment struct {
	ID            string       // идентификатор оценки для логов
	Category      RiskCategory // итоговая категория
	Score         int          // сумма баллов
	Signals       []string     // сработавшие правила
	ReferenceYear int          // год, от которого считался возраст здания
}
