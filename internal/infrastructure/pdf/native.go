package pdf

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"underwriting-bot/internal/domain/port"
)

// NativeReader извлекает текст средствами Go, без внешних бинарей.
type NativeReader struct {
	logger *zap.Logger
}

// NewNativeReader создаёт ридер на github.com/ledongthuc/pdf
func NewNativeReader(logger *zap.Logger) *NativeReader {
	return &NativeReader{logger: logger}
}

// ReadText склеивает текст всех страниц; страницы без текста ничего не добавляют.
func (r *NativeReader) ReadText(ctx context.Context, pdfData []byte) (text string, err error) {
	// Библиотека паникует на части битых файлов.
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrInvalidDocument, rec)
		}
	}()

	doc, err := pdflib.NewReader(bytes.NewReader(pdfData), int64(len(pdfData)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var b strings.Builder
	pages := doc.NumPage()
	empty := 0
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := doc.Page(i)
		if page.V.IsNull() || page.V.Key("Contents").IsNull() {
			empty++
			continue
		}
		pageText, err := readPage(page)
		if err != nil {
			r.logger.Warn("skip unreadable page", zap.Int("page", i), zap.Error(err))
			empty++
			continue
		}
		if pageText == "" {
			empty++
			continue
		}
		b.WriteString(pageText)
	}

	r.logger.Debug("pdf text extracted",
		zap.String("backend", BackendNative),
		zap.Int("pages", pages),
		zap.Int("empty_pages", empty),
		zap.Int("chars", b.Len()),
	)
	return normalizeText(b.String()), nil
}

// Пороги в долях кегля предыдущего глифа.
const (
	lineShift = 0.5
	wordGap   = 0.25
)

func readPage(page pdflib.Page) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("%v", rec)
		}
	}()
	return layoutText(page.Content().Text), nil
}

// layoutText собирает строки из глифов в порядке потока содержимого:
// смена Y даёт перевод строки, заметный разрыв по X даёт пробел.
func layoutText(glyphs []pdflib.Text) string {
	var b strings.Builder
	var last byte
	for i, g := range glyphs {
		if g.S == "" {
			continue
		}
		if i > 0 && last != 0 && last != ' ' && last != '\n' && g.S[0] != '\n' {
			prev := glyphs[i-1]
			size := math.Max(prev.FontSize, 1)
			switch {
			case math.Abs(g.Y-prev.Y) > size*lineShift:
				b.WriteByte('\n')
			case g.X-(prev.X+prev.W) > size*wordGap && g.S != " ":
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
		last = g.S[len(g.S)-1]
	}
	return b.String()
}

var _ port.ReportReader = (*NativeReader)(nil)
