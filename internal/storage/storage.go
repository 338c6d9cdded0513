package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore persists an uploaded file and returns the public path it is served under.
// Remove takes a path previously returned by Save.
type FileStore interface {
	Save(ctx context.Context, folder string, fh *multipart.FileHeader) (string, error)
	Remove(ctx context.Context, publicPath string) error
}

// LocalStore writes into Dir and exposes files below URLPrefix.
type LocalStore struct {
	Dir       string
	URLPrefix string
}

func NewLocalStore(dir, urlPrefix string) LocalStore {
	if strings.TrimSpace(dir) == "" {
		dir = "uploads"
	}
	if strings.TrimSpace(urlPrefix) == "" {
		urlPrefix = "/uploads"
	}
	return LocalStore{Dir: dir, URLPrefix: "/" + strings.Trim(urlPrefix, "/")}
}

func (s LocalStore) Save(ctx context.Context, folder string, fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", fmt.Errorf("file kosong")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	folder = sanitizeFolder(folder)
	dir := filepath.Join(s.Dir, filepath.FromSlash(folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}

	return path.Join(s.URLPrefix, folder, name), nil
}

// Remove deletes a stored file. A file that is already gone is not an error.
func (s LocalStore) Remove(ctx context.Context, publicPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, ok := strings.CutPrefix(path.Clean("/"+publicPath), s.URLPrefix+"/")
	if !ok {
		return fmt.Errorf("path di luar upload: %q", publicPath)
	}
	rel = sanitizeFolder(rel)
	if err := os.Remove(filepath.Join(s.Dir, filepath.FromSlash(rel))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// sanitizeFolder keeps folder names relative and free of traversal.
func sanitizeFolder(folder string) string {
	folder = strings.ReplaceAll(folder, "\\", "/")
	parts := []string{}
	for _, p := range strings.Split(folder, "/") {
		p = strings.TrimSpace(p)
		if p == "" || p == "." || p == ".." {
			continue
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return "misc"
	}
	return strings.Join(parts, "/")
}
