package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"thumbnail-server/internal/repository/image"

	"github.com/spf13/afero"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// FileRepository keeps full images and thumbnails on a filesystem.
type FileRepository struct {
	fs afero.Fs
}

func NewFileRepository(fsys afero.Fs) *FileRepository {
	return &FileRepository{fs: fsys}
}

// NewOSFileRepository is backed by the host filesystem.
func NewOSFileRepository() *FileRepository {
	return NewFileRepository(afero.NewOsFs())
}

// Exists treats every stat error as absence.
func (r *FileRepository) Exists(ctx context.Context, path string) bool {
	if ctx.Err() != nil {
		return false
	}

	_, err := r.fs.Stat(path)
	return err == nil
}

// List returns the names of all entries directly under dir.
func (r *FileRepository) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

func (r *FileRepository) EnsureDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	exists, err := afero.DirExists(r.fs, dir)
	if err == nil && exists {
		return nil
	}

	if err := r.fs.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("%w: failed to create dir %s: %v", image.ErrStorageError, dir, err)
	}
	return nil
}

func (r *FileRepository) GetObject(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := r.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", image.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

// SaveProcessed writes data next to path and renames it into place, so a
// concurrent reader sees either nothing or the complete file.
func (r *FileRepository) SaveProcessed(ctx context.Context, path string, data io.Reader) (int64, error) {
	if path == "" || filepath.Base(path) == string(filepath.Separator) {
		return 0, fmt.Errorf("%w: %q", image.ErrInvalidTarget, path)
	}
	dir := filepath.Dir(path)

	tmp, err := afero.TempFile(r.fs, dir, ".thumb-*")
	if err != nil {
		return 0, fmt.Errorf("%w: failed to create temp file in %s: %v", image.ErrStorageError, dir, err)
	}
	tmpName := tmp.Name()

	written, err := copyWithContext(ctx, tmp, data)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		r.fs.Remove(tmpName)
		return 0, fmt.Errorf("%w: failed to write %s: %v", image.ErrStorageError, path, err)
	}

	if err := r.fs.Chmod(tmpName, filePerm); err != nil {
		r.fs.Remove(tmpName)
		return 0, fmt.Errorf("%w: failed to chmod %s: %v", image.ErrStorageError, tmpName, err)
	}

	if err := r.fs.Rename(tmpName, path); err != nil {
		r.fs.Remove(tmpName)
		return 0, fmt.Errorf("%w: failed to rename into %s: %v", image.ErrStorageError, path, err)
	}

	return written, nil
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
