package core

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// MaxFileLoadSize limits the maximum size of file loaded into memory (10MB)
const MaxFileLoadSize = 10 * 1024 * 1024

// PageExtensions are tried in order when a page identifier is located.
var PageExtensions = []string{".tmpl", ".html"}

type PageVFS struct {
	fsys fs.FS
}

func NewPageVFS(fsys fs.FS) *PageVFS {
	return &PageVFS{fsys: fsys}
}

func (p *PageVFS) FS() fs.FS {
	return p.fsys
}

func cleanName(name string) (string, error) {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if name == "" {
		name = "."
	}
	if !fs.ValidPath(name) {
		return "", &os.PathError{Op: "open", Path: name, Err: os.ErrInvalid}
	}
	return name, nil
}

func (p *PageVFS) Stat(_ context.Context, name string) (fs.FileInfo, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	return fs.Stat(p.fsys, name)
}

func (p *PageVFS) Exists(ctx context.Context, name string) (bool, error) {
	stat, err := p.Stat(ctx, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !stat.IsDir(), nil
}

func (p *PageVFS) Open(ctx context.Context, name string) (fs.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	file, err := p.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if stat.IsDir() {
		_ = file.Close()
		return nil, errors.Wrap(os.ErrNotExist, name)
	}
	return file, nil
}

func (p *PageVFS) Read(ctx context.Context, name string) ([]byte, error) {
	open, err := p.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer open.Close()

	limitReader := io.LimitReader(open, MaxFileLoadSize+1)
	data, err := io.ReadAll(limitReader)
	if err != nil {
		return nil, err
	}
	if len(data) > MaxFileLoadSize {
		return nil, &os.PathError{Op: "read", Path: name, Err: os.ErrInvalid}
	}
	return data, nil
}

func (p *PageVFS) ReadString(ctx context.Context, name string) (string, error) {
	read, err := p.Read(ctx, name)
	if err != nil {
		return "", err
	}
	return string(read), nil
}

// ModTime returns the zero time when the file has no usable timestamp (embed.FS).
func (p *PageVFS) ModTime(ctx context.Context, name string) time.Time {
	stat, err := p.Stat(ctx, name)
	if err != nil {
		return time.Time{}
	}
	return stat.ModTime()
}

// Locate maps a page identifier onto the file that holds its source.
func (p *PageVFS) Locate(ctx context.Context, page PageID) (string, error) {
	for _, ext := range PageExtensions {
		name := string(page) + ext
		exists, err := p.Exists(ctx, name)
		if err != nil {
			return "", err
		}
		if exists {
			return name, nil
		}
	}
	return "", errors.Wrapf(os.ErrNotExist, "page %s", page)
}

// Walk lists every regular file below root.
func (p *PageVFS) Walk(root string) ([]string, error) {
	root, err := cleanName(root)
	if err != nil {
		return nil, err
	}
	result := make([]string, 0)
	err = fs.WalkDir(p.fsys, root, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			result = append(result, name)
		}
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return result, nil
}
