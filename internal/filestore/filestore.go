package filestore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Виды хранимого содержимого - каждому своя поддиректория.
const (
	KindCV       = "cvs"
	KindApproval = "approvals"
	KindActivity = "activities"
	KindOfficial = "official"
	KindFinal    = "finals"
)

// Store сохраняет непрозрачные блобы и возвращает строковые дескрипторы.
// Рабочий процесс хранит только дескриптор и никогда не читает содержимое.
type Store interface {
	Save(kind string, ext string, content []byte) (string, error)
}

// DiskStore кладет файлы на диск под uuid-именами.
type DiskStore struct {
	baseDir string
}

func NewDiskStore(baseDir string) (*DiskStore, error) {
	for _, kind := range []string{KindCV, KindApproval, KindActivity, KindOfficial, KindFinal} {
		if err := os.MkdirAll(filepath.Join(baseDir, kind), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	return &DiskStore{baseDir: baseDir}, nil
}

func (d *DiskStore) Save(kind string, ext string, content []byte) (string, error) {
	name := uuid.NewString() + ext
	handle := filepath.Join(d.baseDir, kind, name)
	if err := os.WriteFile(handle, content, 0o644); err != nil {
		return "", fmt.Errorf("save %s file: %w", kind, err)
	}
	return handle, nil
}
