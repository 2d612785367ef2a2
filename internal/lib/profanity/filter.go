// Package profanity маскирует нецензурные слова в пользовательских текстах.
//
// Слово заменяется звёздочками той же длины, регистр не учитывается,
// совпадение ищется только по границам слов.
package profanity

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultWords базовый список отслеживаемых слов и их форм.
var DefaultWords = []string{
	"damn", "damned",
	"shit", "shitty",
	"fuck", "fucking", "fucked", "fucker",
	"asshole", "bitch",
}

// Filter маскирует слова из заданного списка.
type Filter struct {
	re *regexp.Regexp
}

// New собирает фильтр по списку слов.
func New(words []string) *Filter {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	if len(quoted) == 0 {
		return &Filter{}
	}
	return &Filter{re: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)}
}

// Default возвращает фильтр со списком DefaultWords.
func Default() *Filter {
	return New(DefaultWords)
}

// Mask возвращает текст, в котором каждое найденное слово заменено звёздочками.
func (f *Filter) Mask(text string) string {
	if f.re == nil {
		return text
	}
	return f.re.ReplaceAllStringFunc(text, func(word string) string {
		return strings.Repeat("*", utf8.RuneCountInString(word))
	})
}
