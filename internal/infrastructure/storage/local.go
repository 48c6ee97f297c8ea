package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var ErrOutsideRoot = errors.New("path is outside the upload directory")

// LocalStorage 单据文件存到本地目录，文件名为 uuid + 原扩展名
type LocalStorage struct {
	fs   afero.Fs
	root string
}

// NewLocalStorage 目录不存在时创建
func NewLocalStorage(fs afero.Fs, root string) (*LocalStorage, error) {
	root = filepath.Clean(root)
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	return &LocalStorage{fs: fs, root: root}, nil
}

// Store 先写临时文件再 rename，读者看不到写了一半的文件
func (s *LocalStorage) Store(ctx context.Context, r io.Reader, suggestedName string) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	tmp, err := afero.TempFile(s.fs, s.root, ".upload-*")
	if err != nil {
		return "", 0, err
	}
	tmpName := tmp.Name()

	size, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.fs.Remove(tmpName)
		return "", 0, fmt.Errorf("写入文件失败: %w", err)
	}

	path := filepath.Join(s.root, uuid.NewString()+extension(suggestedName))
	if err := s.fs.Rename(tmpName, path); err != nil {
		_ = s.fs.Remove(tmpName)
		return "", 0, fmt.Errorf("保存文件失败: %w", err)
	}
	return path, size, nil
}

// Delete 文件不存在不算错误
func (s *LocalStorage) Delete(path string) error {
	p, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStorage) Open(path string) (io.ReadCloser, error) {
	p, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	return s.fs.Open(p)
}

func (s *LocalStorage) resolve(path string) (string, error) {
	p := filepath.Clean(path)
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return p, nil
}

// extension 只保留简单扩展名，防止路径穿越
func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		return ""
	}
	return ext
}
