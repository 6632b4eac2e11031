package statusfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// FileName is the status file written under the data directory.
const FileName = "playground.status.json"

// Record is the persisted view of the plugin's state.
type Record struct {
	Session   string    `json:"session"`
	Plugin    string    `json:"plugin"`
	PID       int       `json:"pid"`
	ChainID   uint64    `json:"chain_id"`
	State     string    `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileRepository stores a Record as a JSON file.
type FileRepository struct {
	dir string
}

// NewFileRepository creates a new FileRepository for the given directory.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

// Load reads the last saved record.
// Returns an empty record and nil error if no status file exists.
func (r *FileRepository) Load() (Record, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, nil
		}
		return Record{}, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Save persists rec atomically (write to temp file, then rename).
func (r *FileRepository) Save(rec Record) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the status file.
func (r *FileRepository) Path() string {
	return filepath.Join(r.dir, FileName)
}
