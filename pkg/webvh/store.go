package webvh

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/onionoriginals/originals-go/pkg/coreerrors"
	"github.com/onionoriginals/originals-go/pkg/did"
)

// LogFileName is the update log's on-disk file name.
const LogFileName = "did.jsonl"

// PathFor returns the directory an update log lives under, relative to an
// output root: <output>/(segments)/.
func PathFor(outputDir string, pathSegments []string) string {
	parts := append([]string{outputDir}, pathSegments...)
	return filepath.Join(parts...)
}

// WriteFile persists entries as newline-delimited canonical JSON, one entry
// per line, at <dir>/did.jsonl. It writes to a temporary file in the same
// directory and renames it into place, so a write cancelled partway
// through never leaves a truncated did.jsonl behind: the rename is the only
// step that can make the new content visible, and it is atomic on every
// platform this SDK targets.
func WriteFile(dir string, entries []Entry) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("webvh: create log directory: %w", err)
	}
	var buf bytes.Buffer
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("webvh: marshal entry: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	path := filepath.Join(dir, LogFileName)
	tmp, err := os.CreateTemp(dir, ".did-*.jsonl.tmp")
	if err != nil {
		return fmt.Errorf("webvh: create temp log file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("webvh: write %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("webvh: close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("webvh: rename %s to %s: %w", tmpPath, path, err)
	}
	return nil
}

// dirLocks serializes appends per log directory: two concurrent appends to
// the same log produce a deterministic LogConflict on the loser. A DID's
// log lives at one directory, so locking by directory path is locking by
// DID.
var dirLocks sync.Map // map[string]*sync.Mutex

func lockFor(dir string) *sync.Mutex {
	v, _ := dirLocks.LoadOrStore(dir, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// AppendEntry appends a single newly-built entry to the on-disk log at dir,
// under the invariant that the entry was built against a log exactly
// expectedPriorLen entries long. If another writer has appended to the same
// log since the caller read it, expectedPriorLen no longer matches the
// on-disk length and AppendEntry fails with coreerrors.CodeLogConflict
// rather than silently clobbering or reordering entries — the loser of a
// race is the caller whose expectedPriorLen is stale.
func AppendEntry(dir string, expectedPriorLen int, entry Entry) error {
	mu := lockFor(dir)
	mu.Lock()
	defer mu.Unlock()

	existing, err := ReadFile(dir)
	if err != nil {
		return err
	}
	if len(existing) != expectedPriorLen {
		return coreerrors.New(coreerrors.CodeLogConflict, "update log has changed since this entry was prepared")
	}
	return WriteFile(dir, append(existing, entry))
}

// ReadFile loads entries from <dir>/did.jsonl. It returns (nil, nil) if the
// file does not exist, letting callers distinguish "no log yet" from a read
// error.
func ReadFile(dir string) ([]Entry, error) {
	path := filepath.Join(dir, LogFileName)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("webvh: open %s: %w", path, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("webvh: parse entry in %s: %w", path, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("webvh: scan %s: %w", path, err)
	}
	return entries, nil
}

// FileStore implements did.WebVHFetcher and did.WebVHLogVerifier against a
// local directory tree, letting pkg/did.Resolver resolve did:webvh
// identities without importing this package directly (see
// pkg/did/resolver.go's comment on avoiding the did<->webvh import cycle).
type FileStore struct {
	OutputDir string
}

// FetchLog implements did.WebVHFetcher.
func (fs FileStore) FetchLog(ctx context.Context, id did.Identifier) ([]byte, error) {
	dir := PathFor(fs.OutputDir, id.PathSegments)
	entries, err := ReadFile(dir)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		return nil, nil
	}
	return json.Marshal(entries)
}

// VerifyLog implements did.WebVHLogVerifier.
func (fs FileStore) VerifyLog(log []byte, id did.Identifier) (did.Document, error) {
	var entries []Entry
	if err := json.Unmarshal(log, &entries); err != nil {
		return did.Document{}, fmt.Errorf("webvh: unmarshal log: %w", err)
	}
	doc, result := Verify(entries, id)
	if !result.OK {
		return did.Document{}, fmt.Errorf("webvh: log verification failed: %v", result.Errors)
	}
	return doc, nil
}
