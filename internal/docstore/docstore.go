// Package docstore stores research document content on the local filesystem.
// Metadata lives in the database; this package only handles bytes.
package docstore

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// MaxUploadBytes caps a single document upload.
const MaxUploadBytes = 20 << 20 // 20 MiB

// allowedMIMETypes is the server-side allow-list. The client-supplied
// Content-Type header is ignored; the type is sniffed from content.
var allowedMIMETypes = map[string]bool{
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
	"application/zip": true, // docx/xlsx sniff as zip
	"text/plain":      true,
	"text/csv":        true,
	"text/html":       true,
	"image/png":       true,
	"image/jpeg":      true,
}

// Store writes and reads document content under a root directory, one
// subdirectory per theme.
type Store struct {
	root string
}

// New creates a Store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, eris.New("docstore: root directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "docstore: create root")
	}
	return &Store{root: dir}, nil
}

// Upload holds a validated document ready to persist.
type Upload struct {
	FileName  string
	MimeType  string
	SizeBytes int64
	content   []byte
}

// Validate reads and checks an incoming document: size cap, sniffed MIME
// type against the allow-list. The reader should already be wrapped in
// http.MaxBytesReader by HTTP callers; the cap here is a second line for
// non-HTTP paths.
func Validate(r io.Reader, fileName string) (*Upload, error) {
	content, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "docstore: read upload")
	}
	if len(content) == 0 {
		return nil, eris.New("docstore: empty upload")
	}
	if len(content) > MaxUploadBytes {
		return nil, eris.Errorf("docstore: upload exceeds %d bytes", MaxUploadBytes)
	}

	mimeType := http.DetectContentType(content)
	// DetectContentType appends charset parameters to text types.
	if idx := strings.Index(mimeType, ";"); idx > 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if !allowedMIMETypes[mimeType] {
		return nil, eris.Errorf("docstore: unsupported content type %s", mimeType)
	}

	return &Upload{
		FileName:  sanitizeFileName(fileName),
		MimeType:  mimeType,
		SizeBytes: int64(len(content)),
		content:   content,
	}, nil
}

// Save persists a validated upload under the theme's directory and returns
// the storage path relative to the root. A random prefix prevents collisions
// and path guessing.
func (s *Store) Save(ctx context.Context, themeID string, up *Upload) (string, error) {
	if themeID == "" {
		return "", eris.New("docstore: theme id required")
	}
	dir := filepath.Join(s.root, themeID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "docstore: create theme dir")
	}

	rel := filepath.Join(themeID, uuid.New().String()+"_"+up.FileName)
	abs := filepath.Join(s.root, rel)
	if err := os.WriteFile(abs, up.content, 0o644); err != nil {
		return "", eris.Wrap(err, "docstore: write document")
	}

	zap.L().Info("docstore: saved document",
		zap.String("theme_id", themeID),
		zap.String("path", rel),
		zap.Int64("size_bytes", up.SizeBytes),
	)
	return rel, nil
}

// Open returns a reader for a previously stored document. The path must be
// one returned by Save; anything escaping the root is rejected.
func (s *Store) Open(storagePath string) (io.ReadCloser, error) {
	abs := filepath.Join(s.root, filepath.Clean("/"+storagePath))
	if !strings.HasPrefix(abs, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return nil, eris.Errorf("docstore: invalid path %s", storagePath)
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, eris.Wrapf(err, "docstore: open %s", storagePath)
	}
	return f, nil
}

// sanitizeFileName strips directory components and characters that are
// unsafe in a filename.
func sanitizeFileName(name string) string {
	name = filepath.Base(name)
	var b bytes.Buffer
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 || b.String() == "." || b.String() == ".." {
		return "document"
	}
	return b.String()
}
