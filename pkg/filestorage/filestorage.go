package filestorage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FileStorage хранит загруженные файлы (выгрузки заявлений из ФИС)
// под уникальными именами, чтобы повторные загрузки не затирали друг друга.
type FileStorage interface {
	Save(src io.Reader, originalName string) (string, error)
	Remove(path string) error
}

type localFileStorage struct {
	baseDir string
}

func NewLocalFileStorage(baseDir string) (FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог хранилища: %w", err)
	}
	return &localFileStorage{baseDir: baseDir}, nil
}

func (s *localFileStorage) Save(src io.Reader, originalName string) (string, error) {
	name := uuid.New().String() + filepath.Ext(originalName)
	fullPath := filepath.Join(s.baseDir, name)

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("не удалось создать файл: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("не удалось записать файл: %w", err)
	}
	return fullPath, nil
}

func (s *localFileStorage) Remove(path string) error {
	return os.Remove(path)
}
