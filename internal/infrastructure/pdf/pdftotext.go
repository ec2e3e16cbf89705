package pdf

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"underwriting-bot/internal/domain/port"
)

// PdftotextReader извлекает текст утилитой pdftotext из poppler.
type PdftotextReader struct {
	bin    string
	runner Runner
	logger *zap.Logger
}

// NewPdftotextReader создаёт ридер; пустой bin означает "pdftotext" из PATH
func NewPdftotextReader(bin string, logger *zap.Logger) *PdftotextReader {
	if bin == "" {
		bin = "pdftotext"
	}
	return &PdftotextReader{bin: bin, runner: execRunner{logger: logger}, logger: logger}
}

// ReadText сохраняет PDF во временный файл и читает текст из stdout.
func (r *PdftotextReader) ReadText(ctx context.Context, pdfData []byte) (string, error) {
	tmp, err := os.CreateTemp("", "report-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err := os.Remove(tmp.Name()); err != nil {
			r.logger.Warn("failed to remove temp file", zap.String("path", tmp.Name()), zap.Error(err))
		}
	}()

	if _, err := tmp.Write(pdfData); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	// pdftotext -enc UTF-8 -eol unix <path> -
	out, errb, err := r.runner.Run(ctx, r.bin, "-enc", "UTF-8", "-eol", "unix", tmp.Name(), "-")
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %s", ErrInvalidDocument, strings.TrimSpace(string(errb)))
	}

	text := string(out)
	r.logger.Debug("pdf text extracted",
		zap.String("backend", BackendPdftotext),
		zap.Int("pages", strings.Count(text, "\f")),
		zap.Int("chars", len(text)),
	)
	return normalizeText(text), nil
}

var _ port.ReportReader = (*PdftotextReader)(nil)
