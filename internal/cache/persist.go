package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/querycanvas/langservice/internal/errs"
	"github.com/querycanvas/langservice/internal/grammar"
)

// snapshotVersion is bumped whenever the on-disk shape changes; a mismatch
// on load triggers deleting the whole cache directory (§6).
const snapshotVersion = 1

// Storage is the persistence interface the service facade injects into the
// cache (§4.3: "a storage interface is injected"). FileStorage is the
// default, file-backed implementation; tests may supply an in-memory fake.
type Storage interface {
	SaveIndex(index Index) error
	LoadIndex() (Index, error)
	SaveDocument(documentID string, snap DocumentSnapshot) error
	LoadDocument(documentID string) (DocumentSnapshot, bool, error)
	Reset() error
}

// IndexEntry describes one document tracked by cache-index.json.
type IndexEntry struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	Timestamp  time.Time `json:"timestamp"`
}

// Index is the top-level cache-index.json document.
type Index struct {
	Version   int          `json:"version"`
	Documents []IndexEntry `json:"documents"`
}

// StatementSnapshot is the serializable form of a Statement.
type StatementSnapshot struct {
	Text                string            `json:"text"`
	Hash                string            `json:"hash"`
	Tokens              []grammar.Token   `json:"tokens,omitempty"`
	LineStart           int               `json:"line_start"`
	LineEnd             int               `json:"line_end"`
	OffsetStart         int               `json:"offset_start"`
	OffsetEnd           int               `json:"offset_end"`
	IsValid             bool              `json:"is_valid"`
	IsDirty             bool              `json:"is_dirty"`
	TimestampCreated    time.Time         `json:"timestamp_created"`
	TimestampLastAccess time.Time         `json:"timestamp_last_access"`
	AccessCount         int64             `json:"access_count"`
	ByteSize            int64             `json:"byte_size"`
	Errors              []errs.Diagnostic `json:"errors,omitempty"`
}

// Metrics is the per-document metrics block persisted alongside statements.
type Metrics struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Evicted  int64 `json:"evicted"`
	TotalBytes int64 `json:"total_bytes"`
}

// DocumentSnapshot is the on-disk shape of document-<safe_id>-<hash8>.json.
type DocumentSnapshot struct {
	Version    int                 `json:"version"`
	DocumentID string              `json:"document_id"`
	Timestamp  time.Time           `json:"timestamp"`
	Statements []StatementSnapshot `json:"statements"`
	Metrics    Metrics             `json:"metrics"`
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// safeDocumentID sanitizes a document id for use inside a filename.
func safeDocumentID(documentID string) string {
	s := unsafeFilenameChars.ReplaceAllString(documentID, "_")
	if s == "" {
		return "doc"
	}
	return s
}

// documentHash8 returns the first 8 hex characters of sha256(documentID),
// disambiguating two document IDs that sanitize to the same safe string.
func documentHash8(documentID string) string {
	sum := sha256.Sum256([]byte(documentID))
	return hex.EncodeToString(sum[:])[:8]
}

func documentFilename(documentID string) string {
	return fmt.Sprintf("document-%s-%s.json", safeDocumentID(documentID), documentHash8(documentID))
}

// FileStorage persists the cache under a directory of UTF-8 JSON files
// (§6). Filenames are deterministic given document_id.
type FileStorage struct {
	dir string
}

// NewFileStorage returns a FileStorage rooted at dir (conventionally
// ".cache" relative to the host's working directory), creating it if
// necessary.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create storage dir %s: %w", dir, err)
	}
	return &FileStorage{dir: dir}, nil
}

func (s *FileStorage) indexPath() string {
	return filepath.Join(s.dir, "cache-index.json")
}

// SaveIndex writes cache-index.json.
func (s *FileStorage) SaveIndex(index Index) error {
	index.Version = snapshotVersion
	return writeJSON(s.indexPath(), index)
}

// LoadIndex reads cache-index.json, resetting the whole directory (and
// returning an empty index) on a version mismatch.
func (s *FileStorage) LoadIndex() (Index, error) {
	var index Index
	ok, err := readJSON(s.indexPath(), &index)
	if err != nil {
		return Index{}, err
	}
	if !ok {
		return Index{Version: snapshotVersion}, nil
	}
	if index.Version != snapshotVersion {
		if resetErr := s.Reset(); resetErr != nil {
			return Index{}, resetErr
		}
		return Index{Version: snapshotVersion}, nil
	}
	return index, nil
}

// SaveDocument writes one document's snapshot file.
func (s *FileStorage) SaveDocument(documentID string, snap DocumentSnapshot) error {
	snap.Version = snapshotVersion
	snap.DocumentID = documentID
	path := filepath.Join(s.dir, documentFilename(documentID))
	return writeJSON(path, snap)
}

// LoadDocument reads one document's snapshot file, resetting the whole
// directory on a version mismatch.
func (s *FileStorage) LoadDocument(documentID string) (DocumentSnapshot, bool, error) {
	var snap DocumentSnapshot
	path := filepath.Join(s.dir, documentFilename(documentID))
	ok, err := readJSON(path, &snap)
	if err != nil || !ok {
		return DocumentSnapshot{}, false, err
	}
	if snap.Version != snapshotVersion {
		if resetErr := s.Reset(); resetErr != nil {
			return DocumentSnapshot{}, false, resetErr
		}
		return DocumentSnapshot{}, false, nil
	}
	return snap, true, nil
}

// Reset deletes and recreates the storage directory, the version-mismatch
// recovery path (§6).
func (s *FileStorage) Reset() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("cache: reset storage dir %s: %w", s.dir, err)
	}
	return os.MkdirAll(s.dir, 0o755)
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("cache: write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) (bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("cache: read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("cache: unmarshal %s: %w", path, err)
	}
	return true, nil
}

// toSnapshot converts a partition's live entries into a DocumentSnapshot.
func toSnapshot(documentID string, p *partition) DocumentSnapshot {
	stmts := make([]StatementSnapshot, 0, len(p.entries))
	for _, stmt := range p.entries {
		stmts = append(stmts, StatementSnapshot{
			Text:                stmt.Text,
			Hash:                stmt.Hash,
			Tokens:              stmt.Tokens,
			LineStart:           stmt.LineStart,
			LineEnd:             stmt.LineEnd,
			OffsetStart:         stmt.OffsetStart,
			OffsetEnd:           stmt.OffsetEnd,
			IsValid:             stmt.IsValid,
			IsDirty:             stmt.IsDirty,
			TimestampCreated:    stmt.TimestampCreated,
			TimestampLastAccess: stmt.TimestampLastAccess,
			AccessCount:         stmt.AccessCount,
			ByteSize:            stmt.ByteSize,
			Errors:              stmt.Errors,
		})
	}
	return DocumentSnapshot{
		Version:    snapshotVersion,
		DocumentID: documentID,
		Timestamp:  time.Now(),
		Statements: stmts,
		Metrics: Metrics{
			Hits:       p.hits,
			Misses:     p.misses,
			TotalBytes: p.totalBytes,
		},
	}
}

func fromSnapshot(snap DocumentSnapshot) *partition {
	p := newPartition()
	for _, s := range snap.Statements {
		stmt := &Statement{
			Text:                s.Text,
			Hash:                s.Hash,
			Tokens:              s.Tokens,
			LineStart:           s.LineStart,
			LineEnd:             s.LineEnd,
			OffsetStart:         s.OffsetStart,
			OffsetEnd:           s.OffsetEnd,
			IsValid:             s.IsValid,
			IsDirty:             s.IsDirty,
			TimestampCreated:    s.TimestampCreated,
			TimestampLastAccess: s.TimestampLastAccess,
			AccessCount:         s.AccessCount,
			ByteSize:            s.ByteSize,
			Errors:              s.Errors,
		}
		p.entries[stmt.Hash] = stmt
		p.totalBytes += stmt.ByteSize
	}
	p.hits = snap.Metrics.Hits
	p.misses = snap.Metrics.Misses
	return p
}

// Save persists documentID's live entries and records it in the index.
func (c *Cache) Save(storage Storage, documentID string) error {
	c.mu.Lock()
	p := c.partitionFor(documentID)
	snap := toSnapshot(documentID, p)
	c.mu.Unlock()

	if err := storage.SaveDocument(documentID, snap); err != nil {
		return err
	}
	index, err := storage.LoadIndex()
	if err != nil {
		return err
	}
	entry := IndexEntry{DocumentID: documentID, Filename: documentFilename(documentID), Timestamp: snap.Timestamp}
	replaced := false
	for i, e := range index.Documents {
		if e.DocumentID == documentID {
			index.Documents[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		index.Documents = append(index.Documents, entry)
	}
	return storage.SaveIndex(index)
}

// Load restores documentID's partition from storage, replacing any live
// entries currently held for it.
func (c *Cache) Load(storage Storage, documentID string) error {
	snap, ok, err := storage.LoadDocument(documentID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	c.mu.Lock()
	c.documents[documentID] = fromSnapshot(snap)
	c.refreshBytesGauge()
	c.mu.Unlock()
	return nil
}

// SafeDocumentID exposes the filename-sanitization rule for callers that
// need to predict a persisted filename without going through Save.
func SafeDocumentID(documentID string) string { return safeDocumentID(documentID) }
