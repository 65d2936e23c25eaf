// Package storage keeps uploaded objects on the local filesystem, one
// directory per bucket, and serves them read-only over HTTP.
package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// FilesPrefix is the URL path under which buckets are served.
const FilesPrefix = "/files/"

var (
	ErrInvalidPath = errors.New("invalid object path")
	ErrTooLarge    = errors.New("object exceeds upload limit")
	ErrNotFound    = errors.New("object not found")
)

type Object struct {
	Bucket      string `json:"bucket"`
	Path        string `json:"path"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

type Store struct {
	Root     string
	BaseURL  string
	MaxBytes int64
}

func New(root, baseURL string, maxBytes int64) *Store {
	return &Store{Root: root, BaseURL: strings.TrimRight(baseURL, "/"), MaxBytes: maxBytes}
}

// ObjectPath builds {entityType}/{entityID}/{unixMillis}_{name} with a
// sanitized file name.
func ObjectPath(entityType, entityID, filename string, now time.Time) string {
	return path.Join(cleanSegment(entityType), cleanSegment(entityID),
		strconv.FormatInt(now.UnixMilli(), 10)+"_"+cleanSegment(filename))
}

func cleanSegment(s string) string {
	s = path.Base(strings.ReplaceAll(strings.TrimSpace(s), `\`, "/"))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}

func (s *Store) resolve(bucket, objectPath string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", ErrInvalidPath
	}
	clean := path.Clean("/" + objectPath)
	if clean == "/" || strings.Contains(objectPath, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.Root, bucket, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Put stores r at bucket/objectPath. The content is written to a temporary
// file first and only becomes visible once complete.
func (s *Store) Put(ctx context.Context, bucket, objectPath string, r io.Reader) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	target, err := s.resolve(bucket, objectPath)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Object{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return Object{}, err
	}
	defer os.Remove(tmp.Name())

	src := r
	if s.MaxBytes > 0 {
		src = io.LimitReader(r, s.MaxBytes+1)
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		tmp.Close()
		return Object{}, err
	}
	head = head[:n]
	written, err := io.Copy(tmp, io.MultiReader(bytes.NewReader(head), src))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Object{}, err
	}
	if s.MaxBytes > 0 && written > s.MaxBytes {
		return Object{}, ErrTooLarge
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return Object{}, err
	}
	rel := strings.TrimPrefix(path.Clean("/"+objectPath), "/")
	return Object{
		Bucket:      bucket,
		Path:        rel,
		URL:         s.PublicURL(bucket, rel),
		Size:        written,
		ContentType: http.DetectContentType(head),
	}, nil
}

// Upload stores an object and returns its public URL.
func (s *Store) Upload(ctx context.Context, bucket, objectPath string, r io.Reader) (string, error) {
	obj, err := s.Put(ctx, bucket, objectPath, r)
	if err != nil {
		return "", err
	}
	return obj.URL, nil
}

func (s *Store) Delete(ctx context.Context, bucket, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.resolve(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// DeleteOwned removes the object behind a public URL issued by this store
// when it sits under {entityType}/{entityID}/. URLs pointing elsewhere, or at
// another record's objects, are left alone and report false.
func (s *Store) DeleteOwned(ctx context.Context, publicURL, entityType, entityID string) (bool, error) {
	bucket, objectPath, ok := s.Locate(publicURL)
	if !ok {
		return false, nil
	}
	owner := path.Join(cleanSegment(entityType), cleanSegment(entityID)) + "/"
	if !strings.HasPrefix(path.Clean(objectPath), owner) {
		return false, nil
	}
	err := s.Delete(ctx, bucket, objectPath)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) PublicURL(bucket, objectPath string) string {
	escaped := make([]string, 0, 4)
	for _, seg := range strings.Split(objectPath, "/") {
		escaped = append(escaped, url.PathEscape(seg))
	}
	return s.BaseURL + FilesPrefix + url.PathEscape(bucket) + "/" + strings.Join(escaped, "/")
}

// Locate maps a public URL back to its bucket and object path.
func (s *Store) Locate(publicURL string) (string, string, bool) {
	prefix := s.BaseURL + FilesPrefix
	if !strings.HasPrefix(publicURL, prefix) {
		return "", "", false
	}
	rest, err := url.PathUnescape(strings.TrimPrefix(publicURL, prefix))
	if err != nil {
		return "", "", false
	}
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	bucket, objectPath, found := strings.Cut(rest, "/")
	if !found || bucket == "" || objectPath == "" {
		return "", "", false
	}
	return bucket, objectPath, true
}

// Handler serves stored objects below FilesPrefix. Directory listings are
// never exposed.
func (s *Store) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		bucket, objectPath, found := strings.Cut(strings.TrimPrefix(r.URL.Path, FilesPrefix), "/")
		if !found {
			http.NotFound(w, r)
			return
		}
		target, err := s.resolve(bucket, objectPath)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		f, err := os.Open(target)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}
