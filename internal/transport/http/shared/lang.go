package shared

import (
	"net/http"

	"tbscrm/internal/platform/i18n"
)

// Language picks the output language from ?lang, falling back to the
// Accept-Language header.
func Language(r *http.Request) i18n.Lang {
	if lang, ok := i18n.Parse(r.URL.Query().Get("lang")); ok {
		return lang
	}
	return i18n.Negotiate(r.Header.Get("Accept-Language"))
}
