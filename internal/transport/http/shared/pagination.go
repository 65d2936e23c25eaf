package shared

import (
	"net/http"
	"strconv"
	"strings"
)

// Page is a limit/offset window over a newest-first list.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// PageMeta is returned next to a page of items.
type PageMeta struct {
	Page
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}

// ParsePage reads limit plus either offset or a 1-based page number.
// Malformed values are recorded on v; an oversized limit is clamped.
func ParsePage(r *http.Request, defaultLimit, maxLimit int, v *Validator) Page {
	q := r.URL.Query()
	p := Page{Limit: defaultLimit}
	if n, ok := queryInt(q.Get("limit"), 1, v, "limit"); ok {
		p.Limit = n
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	switch {
	case q.Has("offset"):
		if n, ok := queryInt(q.Get("offset"), 0, v, "offset"); ok {
			p.Offset = n
		}
	case q.Has("page"):
		if n, ok := queryInt(q.Get("page"), 1, v, "page"); ok {
			p.Offset = (n - 1) * p.Limit
		}
	}
	return p
}

func (p Page) Meta(total, returned int) PageMeta {
	return PageMeta{Page: p, Total: total, HasMore: p.Offset+returned < total}
}

func queryInt(raw string, min int, v *Validator, field string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min {
		v.Add(field, "must be an integer of at least "+strconv.Itoa(min))
		return 0, false
	}
	return n, true
}
