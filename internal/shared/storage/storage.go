package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/framecast/backend/internal/shared/config"
)

// Zone represents a storage zone
type Zone string

const (
	ZoneAssets  Zone = "assets"
	ZoneWorking Zone = "working"
	ZoneOutput  Zone = "output"
)

// Zones lists every storage zone.
var Zones = []Zone{ZoneAssets, ZoneWorking, ZoneOutput}

// FileInfo represents metadata about a stored file
type FileInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Zone      Zone      `json:"zone"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service provides file storage operations
type Service struct {
	backend  Backend
	basePath string
	isRemote bool
}

// Backend defines the storage backend interface
type Backend interface {
	Store(ctx context.Context, zone Zone, filename string, reader io.Reader) (string, error)
	Retrieve(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	GetSize(ctx context.Context, path string) (int64, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// NewService creates a new storage service
func NewService(cfg config.StorageConfig) (*Service, error) {
	var backend Backend
	var err error

	switch cfg.Backend {
	case "s3":
		backend, err = NewS3Backend(cfg)
	default:
		backend, err = NewLocalBackend(cfg.BasePath)
	}

	if err != nil {
		return nil, err
	}

	return &Service{
		backend:  backend,
		basePath: cfg.BasePath,
		isRemote: cfg.Backend == "s3",
	}, nil
}

// Store saves a file to the specified zone
func (s *Service) Store(ctx context.Context, zone Zone, originalName string, reader io.Reader) (*FileInfo, error) {
	fileID := uuid.New().String()
	ext := filepath.Ext(originalName)
	filename := fileID + ext

	path, err := s.backend.Store(ctx, zone, filename, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	size, err := s.backend.GetSize(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to get file size: %w", err)
	}

	// All stored files expire after 24 hours
	return &FileInfo{
		ID:        fileID,
		Name:      originalName,
		Path:      path,
		Zone:      zone,
		Size:      size,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

// Retrieve gets a file from storage
func (s *Service) Retrieve(ctx context.Context, path string) (io.ReadCloser, error) {
	return s.backend.Retrieve(ctx, path)
}

// Delete removes a file from storage
func (s *Service) Delete(ctx context.Context, path string) error {
	return s.backend.Delete(ctx, path)
}

// Exists checks if a file exists
func (s *Service) Exists(ctx context.Context, path string) (bool, error) {
	return s.backend.Exists(ctx, path)
}

// GetSize returns the size of a file in bytes
func (s *Service) GetSize(ctx context.Context, path string) (int64, error) {
	return s.backend.GetSize(ctx, path)
}

// GetPath returns the path for a file in a zone.
// For local: full filesystem path. For S3: object key (zone/filename).
func (s *Service) GetPath(zone Zone, filename string) string {
	if s.isRemote {
		return filepath.Join(string(zone), filename)
	}
	return filepath.Join(s.basePath, string(zone), filename)
}

// IsRemote returns true if the storage backend is remote (S3)
func (s *Service) IsRemote() bool {
	return s.isRemote
}

// FinalizeOutputFromLocal uploads a locally written file to remote
// storage at storagePath. For the local backend it is a no-op: the file
// is already in place.
func (s *Service) FinalizeOutputFromLocal(ctx context.Context, storagePath, localPath string) error {
	if !s.isRemote {
		return nil
	}
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	parts := strings.SplitN(storagePath, "/", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid storage path: %s", storagePath)
	}
	_, err = s.backend.Store(ctx, Zone(parts[0]), parts[1], f)
	return err
}

// Sweep removes local files older than the cutoff across all zones and
// returns how many were deleted. Remote backends are swept by their own
// lifecycle rules.
func (s *Service) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	if s.isRemote {
		return 0, nil
	}
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, zone := range Zones {
		dir := filepath.Join(s.basePath, string(zone))
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().Before(cutoff) {
				if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
					removed++
				}
			}
		}
	}
	return removed, nil
}

// LocalBackend implements local filesystem storage
type LocalBackend struct {
	basePath string
}

// NewLocalBackend creates a new local storage backend
func NewLocalBackend(basePath string) (*LocalBackend, error) {
	for _, zone := range Zones {
		path := filepath.Join(basePath, string(zone))
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", path, err)
		}
	}
	return &LocalBackend{basePath: basePath}, nil
}

func (b *LocalBackend) Store(ctx context.Context, zone Zone, filename string, reader io.Reader) (string, error) {
	path := filepath.Join(b.basePath, string(zone), filename)

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		os.Remove(path)
		return "", err
	}

	return path, nil
}

func (b *LocalBackend) Retrieve(ctx context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (b *LocalBackend) Delete(ctx context.Context, path string) error {
	return os.Remove(path)
}

func (b *LocalBackend) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (b *LocalBackend) GetSize(ctx context.Context, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (b *LocalBackend) List(ctx context.Context, prefix string) ([]string, error) {
	var files []string
	err := filepath.Walk(prefix, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
