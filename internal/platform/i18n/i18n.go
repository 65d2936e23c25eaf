// Package i18n holds the two UI languages, their labels and number formatting.
package i18n

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Lang string

const (
	Vietnamese Lang = "vi"
	English    Lang = "en"
)

const Default = Vietnamese

var matcher = language.NewMatcher([]language.Tag{language.Vietnamese, language.English})

// Parse accepts "vi" or "en" in any case.
func Parse(raw string) (Lang, bool) {
	switch Lang(strings.ToLower(strings.TrimSpace(raw))) {
	case Vietnamese:
		return Vietnamese, true
	case English:
		return English, true
	}
	return "", false
}

// Negotiate picks the best supported language for an Accept-Language header.
func Negotiate(acceptLanguage string) Lang {
	if strings.TrimSpace(acceptLanguage) == "" {
		return Default
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return Default
	}
	if index == 1 {
		return English
	}
	return Vietnamese
}

func (l Lang) tag() language.Tag {
	if l == English {
		return language.English
	}
	return language.Vietnamese
}

// FormatMoney rounds to whole dong and groups digits per language,
// e.g. "1.000.000 đ" in Vietnamese.
func FormatMoney(l Lang, amount float64) string {
	p := message.NewPrinter(l.tag())
	return p.Sprintf("%d", int64(math.Round(amount))) + " đ"
}

func FormatInt(l Lang, n int) string {
	return message.NewPrinter(l.tag()).Sprintf("%d", n)
}

// T returns the label for key, falling back to Vietnamese and then the key.
func T(l Lang, key string) string {
	if v, ok := labels[l][key]; ok {
		return v
	}
	if v, ok := labels[Vietnamese][key]; ok {
		return v
	}
	return key
}
