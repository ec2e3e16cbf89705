package service

import (
	"math"
	"regexp"
	"unicode"

	"underwriting-bot/internal/domain/entity"
)

// fieldPattern описывает, как найти и разобрать одно поле отчёта.
type fieldPattern struct {
	name  entity.FieldName
	re    *regexp.Regexp
	parse func(raw string) (int, bool)
}

// Метки регистрозависимые; после метки обязателен хотя бы один пробел или двоеточие.
// Цифры и пробелы любые юникодные, не только ASCII.
var fieldPatterns = []fieldPattern{
	{
		name:  entity.FieldYearBuilt,
		re:    regexp.MustCompile(`Year Built[:\s\p{Z}]+(\p{Nd}{4})`),
		parse: parseDigits,
	},
	{
		name:  entity.FieldSquareFootage,
		re:    regexp.MustCompile(`Square Footage[:\s\p{Z}]+([\p{Nd},]+)`),
		parse: parseDigits,
	},
}

// ExtractFields ищет известные поля в тексте отчёта.
// Используется только первое совпадение каждого шаблона; не найденное поле в результат не попадает.
func ExtractFields(text string) entity.ExtractedFields {
	fields := make(entity.ExtractedFields, len(fieldPatterns))
	for _, p := range fieldPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, ok := p.parse(m[1]); ok {
			fields[p.name] = v
		}
	}
	return fields
}

// parseDigits читает десятичное число, пропуская запятые.
// Строка без цифр не даёт значения; слишком большое число упирается в math.MaxInt.
func parseDigits(s string) (int, bool) {
	n, seen := 0, false
	for _, r := range s {
		d, ok := digitValue(r)
		if !ok {
			continue
		}
		seen = true
		if n > (math.MaxInt-d)/10 {
			n = math.MaxInt
			continue
		}
		n = n*10 + d
	}
	return n, seen
}

// digitValue возвращает значение цифры категории Nd.
// Каждый диапазон таблицы unicode.Nd начинается с нуля и идёт блоками по десять.
func digitValue(r rune) (int, bool) {
	if r >= '0' && r <= '9' {
		return int(r - '0'), true
	}
	for _, rg := range unicode.Nd.R16 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi && rg.Stride == 1 {
			return int(r-lo) % 10, true
		}
	}
	for _, rg := range unicode.Nd.R32 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi && rg.Stride == 1 {
			return int(r-lo) % 10, true
		}
	}
	return 0, false
}
