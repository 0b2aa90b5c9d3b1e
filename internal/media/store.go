// Package media stages uploaded files on local disk and pushes them to the
// configured object store (Cloudinary or S3).
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/utilities"
)

var (
	ErrNoFile   = errors.New("no file supplied")
	ErrNoURL    = errors.New("storage returned no url")
	ErrTooLarge = errors.New("file too large")
)

// Uploader pushes a local file to remote storage and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// Store wraps an Uploader; the staged file is removed after every attempt.
type Store struct {
	up     Uploader
	logger *zap.SugaredLogger
}

func NewStore(up Uploader, logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{up: up, logger: logger}
}

// Store uploads localPath and returns the public URL.
func (s *Store) Store(ctx context.Context, localPath string) (string, error) {
	if localPath == "" {
		return "", ErrNoFile
	}
	defer Cleanup(localPath)

	url, err := s.up.Upload(ctx, localPath)
	if err != nil {
		s.logger.Warnw("media upload failed", "file", filepath.Base(localPath), "err", err)
		return "", fmt.Errorf("upload %s: %w", filepath.Base(localPath), err)
	}
	if url == "" {
		s.logger.Warnw("media upload returned no url", "file", filepath.Base(localPath))
		return "", ErrNoURL
	}
	s.logger.Debugw("media uploaded", "file", filepath.Base(localPath), "url", url)
	return url, nil
}

// Stager writes multipart parts into a temp directory.
type Stager struct {
	Dir      string
	MaxBytes int64
}

// Stage copies fh to Dir as "<ksuid>-<basename>" and returns the path.
func (s Stager) Stage(fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", ErrNoFile
	}
	if s.MaxBytes > 0 && fh.Size > s.MaxBytes {
		return "", ErrTooLarge
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	path := filepath.Join(s.Dir, utilities.NewKSUID()+"-"+safeName(fh.Filename))
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		Cleanup(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := dst.Close(); err != nil {
		Cleanup(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}

// multipartMemory is the in-memory budget of ParseMultipartForm; larger parts spill to disk.
const multipartMemory = 8 << 20

// formOverhead covers the text fields and part headers sent alongside the files.
const formOverhead = 64 << 10

// LimitBody caps r.Body at files*MaxBytes plus form overhead, so an oversized
// upload fails while it is being read instead of after it is spooled to disk.
func (s Stager) LimitBody(w http.ResponseWriter, r *http.Request, files int) {
	if s.MaxBytes <= 0 || r.Body == nil {
		return
	}
	if files < 1 {
		files = 1
	}
	r.Body = http.MaxBytesReader(w, r.Body, int64(files)*s.MaxBytes+formOverhead)
}

// StageFromRequest stages the first file of the named multipart field.
// It returns "" without error when the request has no such file.
func (s Stager) StageFromRequest(r *http.Request, field string) (string, error) {
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			if errors.Is(err, http.ErrNotMultipart) {
				return "", nil
			}
			if bodyTooLarge(err) {
				return "", ErrTooLarge
			}
			return "", fmt.Errorf("parse multipart form: %w", err)
		}
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return "", nil
	}
	return s.Stage(files[0])
}

func bodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

// StageError maps a staging failure onto the error taxonomy.
func StageError(err error) error {
	if errors.Is(err, ErrTooLarge) {
		return apperr.Validation("File is too large")
	}
	return apperr.Internal("Could not read uploaded file", err)
}

// Cleanup removes staged files, ignoring ones already gone.
func Cleanup(paths ...string) {
	for _, p := range paths {
		if p != "" {
			_ = os.Remove(p)
		}
	}
}

func safeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}
