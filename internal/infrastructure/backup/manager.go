// Package backup stores point-in-time snapshots of the state document and
// restores them after a failed migration.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"cosmossdk.io/log"

	"github.com/altuslabsxyz/checklist-migrator/internal/application/ports"
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/document"
	"github.com/altuslabsxyz/checklist-migrator/internal/infrastructure/filesystem"
)

const (
	// Extension is the file extension of every snapshot.
	Extension = ".bak"

	timestampLayout = "20060102T150405.000000000Z"
	backupPerm      = fs.FileMode(0600)
)

// Handle identifies a stored snapshot.
type Handle = ports.BackupInfo

// NotFoundError is returned when a requested snapshot does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("backup not found: %s", e.Path)
}

// IsNotFound returns true if err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// nameRe matches <stem>_<timestamp>_<version>_<label>.bak.
var nameRe = regexp.MustCompile(`^(.+)_(\d{8}T\d{6}\.\d{9}Z)_([0-9A-Za-z.\-]+)_([0-9A-Za-z.\-]*)\.bak$`)

var unsafeChars = regexp.MustCompile(`[^0-9A-Za-z.\-]+`)

// Manager implements ports.BackupStore in a single directory.
type Manager struct {
	dir        string
	stem       string
	maxBackups int
	fs         filesystem.FileSystem
	logger     log.Logger
	now        func() time.Time
}

// NewManager creates a manager storing snapshots of documentPath in dir,
// keeping at most maxBackups of them.
func NewManager(dir, documentPath string, maxBackups int, fsys filesystem.FileSystem, logger log.Logger) *Manager {
	if fsys == nil {
		fsys = filesystem.NewOSFileSystem()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if maxBackups < 1 {
		maxBackups = 1
	}
	base := filepath.Base(documentPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." {
		stem = "state"
	}
	return &Manager{
		dir:        dir,
		stem:       stem,
		maxBackups: maxBackups,
		fs:         fsys,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Dir returns the backup directory.
func (m *Manager) Dir() string {
	return m.dir
}

// CreateBackup writes data as a new snapshot, then rotates old snapshots.
func (m *Manager) CreateBackup(ctx context.Context, data []byte, docVersion string, label string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.fs.MkdirAll(m.dir, 0755); err != nil {
		m.logger.Error("failed to create backup directory", "dir", m.dir, "err", err)
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	ver := sanitize(docVersion)
	if ver == "" {
		ver = "unknown"
	}
	label = sanitize(label)

	// Bump the timestamp until the name is free; nanosecond resolution makes
	// this loop run once in practice.
	created := m.now()
	var path string
	for {
		path = filepath.Join(m.dir, m.fileName(created, ver, label))
		if _, err := m.fs.Stat(path); err != nil {
			break
		}
		created = created.Add(time.Nanosecond)
	}

	if err := m.fs.WriteFileAtomic(path, data, backupPerm); err != nil {
		m.logger.Error("failed to write backup", "path", path, "err", err)
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}
	m.logger.Info("backup created", "path", path, "version", docVersion, "label", label)

	h := &Handle{
		Path:      path,
		Version:   ver,
		Label:     label,
		CreatedAt: created,
		SizeBytes: int64(len(data)),
	}
	m.Rotate(ctx)
	return h, nil
}

// BackupDocument serializes doc and stores it as a snapshot.
func (m *Manager) BackupDocument(ctx context.Context, doc *document.Document, label string) (*Handle, error) {
	data, err := doc.Marshal()
	if err != nil {
		return nil, err
	}
	ver := "unknown"
	if v, err := document.Detect(doc); err == nil {
		ver = v.String()
	}
	return m.CreateBackup(ctx, data, ver, label)
}

func (m *Manager) fileName(created time.Time, ver, label string) string {
	return fmt.Sprintf("%s_%s_%s_%s%s", m.stem, created.UTC().Format(timestampLayout), ver, label, Extension)
}

// Rotate deletes the oldest snapshots beyond the configured maximum and
// returns how many were removed. Failures are logged and never returned.
func (m *Manager) Rotate(ctx context.Context) int {
	backups, err := m.ListBackups(ctx)
	if err != nil {
		m.logger.Warn("backup rotation skipped", "err", err)
		return 0
	}
	removed := 0
	for _, h := range excess(backups, m.maxBackups) {
		if err := m.fs.Remove(h.Path); err != nil {
			m.logger.Warn("failed to remove old backup", "path", h.Path, "err", err)
			continue
		}
		removed++
		m.logger.Debug("removed old backup", "path", h.Path)
	}
	return removed
}

// excess returns the snapshots beyond limit from a newest-first list.
func excess(newestFirst []*Handle, limit int) []*Handle {
	if len(newestFirst) <= limit {
		return nil
	}
	return newestFirst[limit:]
}

// ListBackups returns the snapshots of this document, newest first.
// A missing directory yields an empty list.
func (m *Manager) ListBackups(ctx context.Context) ([]*Handle, error) {
	entries, err := m.fs.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*Handle{}, nil
		}
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	out := make([]*Handle, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		h, ok := m.parse(e.Name())
		if !ok {
			continue
		}
		if info, err := e.Info(); err == nil {
			h.SizeBytes = info.Size()
		}
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Path > out[j].Path
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Manager) parse(name string) (*Handle, bool) {
	match := nameRe.FindStringSubmatch(name)
	if match == nil || match[1] != m.stem {
		return nil, false
	}
	created, err := time.Parse(timestampLayout, match[2])
	if err != nil {
		return nil, false
	}
	return &Handle{
		Path:      filepath.Join(m.dir, name),
		Version:   match[3],
		Label:     match[4],
		CreatedAt: created,
	}, true
}

// Find resolves a snapshot by file name or path. An empty name selects the
// newest snapshot.
func (m *Manager) Find(ctx context.Context, name string) (*Handle, error) {
	backups, err := m.ListBackups(ctx)
	if err != nil {
		return nil, err
	}
	if name == "" {
		if len(backups) == 0 {
			return nil, &NotFoundError{Path: m.dir}
		}
		return backups[0], nil
	}
	for _, h := range backups {
		if h.Path == name || filepath.Base(h.Path) == filepath.Base(name) {
			return h, nil
		}
	}
	return nil, &NotFoundError{Path: name}
}

// Restore decodes a snapshot without touching the live document.
func (m *Manager) Restore(ctx context.Context, h *Handle) (*document.Document, error) {
	data, err := m.read(h)
	if err != nil {
		return nil, err
	}
	return document.Parse(data)
}

// Rollback overwrites the live document at livePath with the snapshot bytes.
func (m *Manager) Rollback(ctx context.Context, livePath string, h *Handle) error {
	data, err := m.read(h)
	if err != nil {
		return err
	}
	if err := m.fs.WriteFileAtomic(livePath, data, backupPerm); err != nil {
		return fmt.Errorf("failed to restore %s: %w", livePath, err)
	}
	m.logger.Info("document rolled back", "path", livePath, "backup", h.Path)
	return nil
}

func (m *Manager) read(h *Handle) ([]byte, error) {
	if h == nil || h.Path == "" {
		return nil, &NotFoundError{Path: "<nil>"}
	}
	data, err := m.fs.ReadFile(h.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: h.Path}
		}
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}
	return data, nil
}

func sanitize(s string) string {
	return strings.Trim(unsafeChars.ReplaceAllString(s, "-"), "-")
}

var _ ports.BackupStore = (*Manager)(nil)
