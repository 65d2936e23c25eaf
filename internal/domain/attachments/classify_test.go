package attachments

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		url  string
		want Kind
	}{
		{"https://cdn.tbs.vn/files/photo.JPG", KindImage},
		{"https://cdn.tbs.vn/files/photo.png?width=300", KindImage},
		{"https://cdn.tbs.vn/files/anim.gif#frame", KindImage},
		{"https://cdn.tbs.vn/a.webp", KindImage},
		{"https://cdn.tbs.vn/a.avif", KindImage},
		{"https://images.unsplash.com/photo-1522071820081", KindImage},
		{"https://cdn.tbs.vn/clip.mp4", KindVideo},
		{"https://cdn.tbs.vn/clip.MOV", KindVideo},
		{"https://cdn.tbs.vn/clip.ogg", KindVideo},
		{"https://storage.example.com/videos-bucket/abc", KindVideo},
		{"https://cdn.tbs.vn/report.pdf?download=1", KindPDF},
		{"https://docs.google.com/document/d/xyz", KindLink},
		{"https://cdn.tbs.vn/pdf-guide", KindLink},
		{"", KindLink},
		{"not a url at all", KindLink},
	}
	for _, tc := range cases {
		if got := Classify(tc.url); got != tc.want {
			t.Fatalf("Classify(%q) = %s, want %s", tc.url, got, tc.want)
		}
	}
}

func TestSummary(t *testing.T) {
	got := Summary([]string{"a.png", "b.jpg", "c.pdf", "https://x.y/z"})
	if got[KindImage] != 2 || got[KindPDF] != 1 || got[KindLink] != 1 || got[KindVideo] != 0 {
		t.Fatalf("unexpected summary %v", got)
	}
}
