package attachments

import (
	"net/url"
	"path"
	"strings"
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindPDF   Kind = "pdf"
	KindLink  Kind = "link"
)

var extensionKinds = map[string]Kind{
	".jpeg": KindImage,
	".jpg":  KindImage,
	".gif":  KindImage,
	".png":  KindImage,
	".webp": KindImage,
	".avif": KindImage,
	".mp4":  KindVideo,
	".webm": KindVideo,
	".ogg":  KindVideo,
	".mov":  KindVideo,
	".pdf":  KindPDF,
}

var hostMarkers = []struct {
	marker string
	kind   Kind
}{
	{"images.unsplash.com", KindImage},
	{"videos-bucket", KindVideo},
}

// Classify decides how an attachment URL is rendered. The path extension wins;
// known hosting markers are checked next; anything else is a plain link.
func Classify(raw string) Kind {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return KindLink
	}
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(raw, "?#"); i >= 0 {
		p = raw[:i]
	}
	if kind, ok := extensionKinds[strings.ToLower(path.Ext(p))]; ok {
		return kind
	}
	lower := strings.ToLower(raw)
	for _, hm := range hostMarkers {
		if strings.Contains(lower, hm.marker) {
			return hm.kind
		}
	}
	return KindLink
}

// Summary counts attachments per kind.
func Summary(urls []string) map[Kind]int {
	out := make(map[Kind]int, 4)
	for _, u := range urls {
		out[Classify(u)]++
	}
	return out
}

func Kinds(urls []string) []Kind {
	out := make([]Kind, len(urls))
	for i, u := range urls {
		out[i] = Classify(u)
	}
	return out
}
