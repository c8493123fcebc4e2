package webvh

import (
	"path/filepath"
	"testing"

	"github.com/onionoriginals/originals-go/pkg/coreerrors"
	"github.com/onionoriginals/originals-go/pkg/did"
)

func testEntry(versionID string) Entry {
	return Entry{
		VersionID:   versionID,
		VersionTime: "2024-01-01T00:00:00Z",
		Parameters:  Parameters{SCID: "abc"},
		State:       did.Document{ID: "did:webvh:example.com:abc"},
	}
}

func TestWriteFileReadFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	entries := []Entry{testEntry("0-abc"), testEntry("1-def")}
	if err := WriteFile(dir, entries); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(dir)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].VersionID != "0-abc" || got[1].VersionID != "1-def" {
		t.Fatalf("unexpected round-tripped entries: %+v", got)
	}
	if _, err := filepath.Abs(filepath.Join(dir, LogFileName)); err != nil {
		t.Fatalf("unexpected path error: %v", err)
	}
}

func TestReadFileMissingReturnsNilNil(t *testing.T) {
	dir := t.TempDir()
	entries, err := ReadFile(dir)
	if err != nil {
		t.Fatalf("expected no error for a log directory with no did.jsonl yet, got %v", err)
	}
	if entries != nil {
		t.Fatalf("expected nil entries, got %v", entries)
	}
}

func TestAppendEntrySucceedsWithMatchingExpectedLength(t *testing.T) {
	dir := t.TempDir()
	if err := WriteFile(dir, []Entry{testEntry("0-abc")}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := AppendEntry(dir, 1, testEntry("1-def")); err != nil {
		t.Fatalf("AppendEntry: %v", err)
	}
	got, err := ReadFile(dir)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries after append, got %d", len(got))
	}
	if got[1].VersionID != "1-def" {
		t.Fatalf("expected appended entry to be preserved, got %+v", got[1])
	}
}

func TestAppendEntryOnEmptyLogWithZeroExpectedLength(t *testing.T) {
	dir := t.TempDir()
	if err := AppendEntry(dir, 0, testEntry("0-abc")); err != nil {
		t.Fatalf("AppendEntry on a fresh directory: %v", err)
	}
	got, err := ReadFile(dir)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
}

func TestAppendEntryRejectsStaleExpectedLength(t *testing.T) {
	dir := t.TempDir()
	if err := WriteFile(dir, []Entry{testEntry("0-abc")}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// A second writer appends first, advancing the log to length 2 without
	// the first writer's knowledge.
	if err := AppendEntry(dir, 1, testEntry("1-def")); err != nil {
		t.Fatalf("first append: %v", err)
	}

	// The first writer's view of the log is now stale (it still believes
	// the log is 1 entry long) and its append must lose.
	err := AppendEntry(dir, 1, testEntry("1-conflict"))
	if err == nil {
		t.Fatal("expected a stale expectedPriorLen to fail with LOG_CONFLICT")
	}
	coreErr, ok := err.(*coreerrors.Error)
	if !ok {
		t.Fatalf("expected *coreerrors.Error, got %T: %v", err, err)
	}
	if coreErr.Code != coreerrors.CodeLogConflict {
		t.Fatalf("expected code %q, got %q", coreerrors.CodeLogConflict, coreErr.Code)
	}

	// The losing append must not have been written: the log still has
	// exactly the two entries from the winning append.
	got, err := ReadFile(dir)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected log to remain at 2 entries after the losing append, got %d", len(got))
	}
	if got[1].VersionID != "1-def" {
		t.Fatalf("expected the winning entry to survive, got %+v", got[1])
	}
}
