package port

import "context"

// ReportReader интерфейс извлечения текста из PDF-отчёта
type ReportReader interface {
	// ReadText возвращает текст всех страниц подряд; страницы без текста пропускаются
	ReadText(ctx context.Context, pdfData []byte) (string, error)
}
