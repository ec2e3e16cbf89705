package pdf

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"underwriting-bot/internal/domain/port"
)

// ErrInvalidDocument возвращается, если PDF не удалось разобрать
var ErrInvalidDocument = errors.New("invalid pdf document")

const (
	BackendNative    = "native"
	BackendPdftotext = "pdftotext"
)

// Config настройки извлечения текста
type Config struct {
	Backend   string // native | pdftotext
	Pdftotext string // бинарь poppler, по умолчанию "pdftotext"
}

// New собирает ReportReader под выбранный бэкенд
func New(cfg Config, logger *zap.Logger) (port.ReportReader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case "", BackendNative:
		return NewNativeReader(logger), nil
	case BackendPdftotext:
		return NewPdftotextReader(cfg.Pdftotext, logger), nil
	default:
		return nil, fmt.Errorf("unknown pdf backend %q", cfg.Backend)
	}
}

// normalizeText приводит текст к NFKC (неразрывные пробелы, полноширинные цифры) и убирает разрывы страниц.
func normalizeText(s string) string {
	s = norm.NFKC.String(s)
	return strings.ReplaceAll(s, "\f", "")
}
