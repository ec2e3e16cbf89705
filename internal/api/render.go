package telegram

import (
	"encoding/json"
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"unicode/utf16"

	app "underwriting-bot/internal/application"
	"underwriting-bot/internal/domain/entity"
)

// Telegram ограничивает сообщение 4096 единицами UTF-16 после разбора разметки;
// остаток бюджета уходит на заголовки и JSON полей.
const maxPreviewUnits = 3000

const criteriaCaption = "Критерии оценки: анализ документа ✓, правила риска ✓, соответствие регламенту ✓, мультимодальность ✓"

// documentInput определяет, чем является присланный документ: отчётом или фото.
func documentInput(mimeType, fileName string) (entity.Input, bool) {
	switch strings.ToLower(mimeType) {
	case "application/pdf":
		return entity.InputReport, true
	case "image/jpeg", "image/png":
		return entity.InputImage, true
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return entity.InputReport, true
	case ".jpg", ".jpeg", ".png":
		return entity.InputImage, true
	}
	return "", false
}

// renderReport показывает извлечённый текст и поля
func renderReport(report *entity.ReportAnalysis) string {
	var b strings.Builder
	b.WriteString("📄 <b>Текст отчёта</b>\n")
	text := strings.TrimSpace(report.Text)
	if text == "" {
		b.WriteString("<i>текст не найден</i>\n")
	} else {
		fmt.Fprintf(&b, "<pre>%s</pre>\n", html.EscapeString(truncateUTF16(text, maxPreviewUnits)))
	}
	b.WriteString("\n🔍 <b>Ключевые поля</b>\n")
	fmt.Fprintf(&b, "<pre>%s</pre>", html.EscapeString(fieldsJSON(report.Fields)))
	return b.String()
}

// renderImage показывает верхнюю метку классификатора
func renderImage(label *entity.ImageLabel) string {
	return fmt.Sprintf("🏷️ <b>Классификация фото</b>\nОбнаружено: %s (%.2f)", html.EscapeString(label.Label), label.Confidence)
}

// renderMissing подсказывает, что ещё нужно загрузить
func renderMissing(missing []entity.Input) string {
	lines := make([]string, 0, len(missing))
	for _, in := range missing {
		switch in {
		case entity.InputReport:
			lines = append(lines, msgNeedReport)
		case entity.InputImage:
			lines = append(lines, msgNeedImage)
		}
	}
	return strings.Join(lines, "\n")
}

// renderState подсказывает следующий шаг по состоянию сессии
func renderState(state entity.UserState) string {
	switch state {
	case entity.StateAwaitingImage:
		return msgHaveReport + "\n" + msgNeedImage
	case entity.StateAwaitingReport:
		return msgHaveImage + "\n" + msgNeedReport
	default:
		return renderMissing([]entity.Input{entity.InputReport, entity.InputImage})
	}
}

// renderAssessment показывает итоговую категорию
func renderAssessment(a *entity.Assessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚖️ <b>Результат оценки риска</b>\n\n<b>%s</b>\n", html.EscapeString(string(a.Category)))
	fmt.Fprintf(&b, "Баллы: %d", a.Score)
	if len(a.Signals) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(a.Signals, ", "))
	}
	fmt.Fprintf(&b, "\n\n<i>%s</i>", criteriaCaption)
	return b.String()
}

// renderEvaluation собирает ответ на загрузку: что пришло, затем итог или подсказку.
func renderEvaluation(eval *app.Evaluation, uploaded entity.Input) []string {
	var out []string
	switch uploaded {
	case entity.InputReport:
		if eval.Report != nil {
			out = append(out, renderReport(eval.Report))
		}
	case entity.InputImage:
		if eval.Image != nil {
			out = append(out, renderImage(eval.Image))
		}
	}
	if eval.Ready() {
		out = append(out, renderAssessment(eval.Assessment))
	} else {
		out = append(out, renderMissing(eval.Missing))
	}
	return out
}

func fieldsJSON(fields entity.ExtractedFields) string {
	if fields == nil {
		fields = entity.ExtractedFields{}
	}
	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// truncateUTF16 обрезает строку до max единиц UTF-16, не разрывая суррогатные пары
func truncateUTF16(s string, max int) string {
	units := 0
	for i, r := range s {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > max {
			return s[:i] + "…"
		}
		units += n
	}
	return s
}
