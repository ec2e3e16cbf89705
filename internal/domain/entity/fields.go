package entity

// FieldName имя поля отчёта об оценке
type FieldName string

const (
	FieldYearBuilt     FieldName = "Year Built"
	FieldSquareFootage FieldName = "Square Footage"
)

// ExtractedFields хранит поля, найденные в тексте отчёта.
// Отсутствие ключа означает «неизвестно», а не ноль.
type ExtractedFields map[FieldName]int

// Get возвращает значение поля и признак его наличия
func (f ExtractedFields) Get(name FieldName) (int, bool) {
	v, ok := f[name]
	return v, ok
}

// ReportAnalysis результат разбора PDF-отчёта.
type ReportAnalysis struct {
	Text   string          // текст всех страниц
	Fields ExtractedFields // распознанные поля
}
