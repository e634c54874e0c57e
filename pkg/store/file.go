package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/berth/pkg/types"
)

// recordFileMode is the permission set for persisted record documents.
const recordFileMode = 0o600

// dataDirMode is the permission set for the data directory.
const dataDirMode = 0o750

// recordExt is the filename extension for persisted record documents.
const recordExt = ".json"

// File is a types.Store that keeps one JSON document per container under a
// data directory, named <id>.json. Every write replaces the whole document
// via a temporary file and an atomic rename, so readers never observe a
// partial record.
type File struct {
	dir string
}

// NewFile creates a file-backed store rooted at the given directory,
// creating the directory if needed.
//
// Parameters:
//   - dir: Data directory holding one document per container.
//
// Returns:
//   - (*File, error): The store, or an error if the directory is unusable.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, dataDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", errCreateDataDirFailed, err)
	}

	return &File{dir: dir}, nil
}

// Write durably persists the full record, overwriting any prior document.
// The document is staged in a temporary file and moved into place with a
// rename, which is atomic on POSIX filesystems.
func (s *File) Write(id types.ContainerID, record *types.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: %w", errEncodeRecordFailed, err)
	}

	target := s.path(id)

	tmp, err := os.CreateTemp(s.dir, string(id)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %w", errWriteRecordFailed, err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return fmt.Errorf("%w: %w", errWriteRecordFailed, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("%w: %w", errWriteRecordFailed, err)
	}

	if err := os.Chmod(tmpName, recordFileMode); err != nil {
		logrus.WithError(err).WithField("container", id.ShortID()).
			Debug("Failed to set record file mode")
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("%w: %w", errWriteRecordFailed, err)
	}

	return nil
}

// Read returns the current record for the identifier, or an error wrapping
// types.ErrRecordNotFound when no document exists.
func (s *File) Read(id types.ContainerID) (*types.Record, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", types.ErrRecordNotFound, id)
		}

		return nil, fmt.Errorf("%w: %w", errReadRecordFailed, err)
	}

	record := &types.Record{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("%w: %w", errDecodeRecordFailed, err)
	}

	record.ID = id

	return record, nil
}

// ListIDs enumerates the identifiers of all persisted records. Directory
// entries whose names do not parse as UUID documents are skipped, so stray
// files and in-flight temporary documents never surface as containers.
func (s *File) ListIDs() ([]types.ContainerID, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errListRecordsFailed, err)
	}

	ids := make([]types.ContainerID, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name, found := cutSuffix(entry.Name(), recordExt)
		if !found {
			continue
		}

		if _, err := uuid.Parse(name); err != nil {
			logrus.WithField("file", entry.Name()).
				Debug("Skipping non-record file in data directory")

			continue
		}

		ids = append(ids, types.ContainerID(name))
	}

	return ids, nil
}

// path returns the document path for a container identifier.
func (s *File) path(id types.ContainerID) string {
	return filepath.Join(s.dir, string(id)+recordExt)
}

// cutSuffix trims the extension and reports whether it was present.
func cutSuffix(name, suffix string) (string, bool) {
	if len(name) <= len(suffix) || name[len(name)-len(suffix):] != suffix {
		return "", false
	}

	return name[:len(name)-len(suffix)], true
}
