package fs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return st
}

func TestStore_FileNamedAfterKey(t *testing.T) {
	ctx := context.Background()
	st := newTempStore(t)

	if err := st.Write(ctx, "proj_v1_suite-result", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(st.Root(), "proj_v1_suite-result"))
	if err != nil {
		t.Fatalf("file not created under identifier name: %v", err)
	}
	if string(b) != `{"a":1}` {
		t.Errorf("content: got %q, want {\"a\":1}", b)
	}

	entries, err := os.ReadDir(st.Root())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestStore_ReadMissing(t *testing.T) {
	st := newTempStore(t)
	_, err := st.Read(context.Background(), "nope")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Read missing: got %v, want fs.ErrNotExist", err)
	}
}

func TestStore_DeleteMissingIsNil(t *testing.T) {
	st := newTempStore(t)
	if err := st.Delete(context.Background(), "nope"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func TestStore_RejectsEmptyKey(t *testing.T) {
	ctx := context.Background()
	st := newTempStore(t)
	if err := st.Write(ctx, "", []byte("x")); err == nil {
		t.Error("Write(\"\"): expected error")
	}
	if _, err := st.Read(ctx, ""); err == nil {
		t.Error("Read(\"\"): expected error")
	}
}

func TestFileName(t *testing.T) {
	cases := []struct{ key, want string }{
		{"proj_v1_suite-result", "proj_v1_suite-result"},
		{"team/proj_v1_suite-time", "team%2Fproj_v1_suite-time"},
		{`a\b`, "a%5Cb"},
		{"50%_x", "50%25_x"},
		{"..", "%2E."},
		{".hidden", "%2Ehidden"},
		{"a\x00b\n", "a%00b%0A"},
	}
	for _, tc := range cases {
		if got := FileName(tc.key); got != tc.want {
			t.Errorf("FileName(%q): got %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestFileName_LongKeysAreHashed(t *testing.T) {
	long := strings.Repeat("n", 300) + "_v1_suite-result"
	other := strings.Repeat("n", 300) + "_v2_suite-result"

	name := FileName(long)
	if len(name) > maxNameLen {
		t.Fatalf("name length: got %d, want <= %d", len(name), maxNameLen)
	}
	if !strings.HasPrefix(name, longPrefix) {
		t.Errorf("name %q lacks %q prefix", name, longPrefix)
	}
	if name == FileName(other) {
		t.Error("distinct long keys share a file name")
	}
	if FileName(long) != name {
		t.Error("FileName is not deterministic")
	}
}

func TestStore_UnsafeKeysRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTempStore(t)
	keys := []string{
		"team/proj_v1_suite-result",
		`..\..\escape`,
		"../escape",
		".tmp-lookalike",
		strings.Repeat("n", 300) + "_v1_suite-result",
	}
	for _, key := range keys {
		if _, err := st.Read(ctx, key); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Read(%q) before write: got %v, want fs.ErrNotExist", key, err)
		}
		if err := st.Write(ctx, key, []byte(key)); err != nil {
			t.Fatalf("Write(%q): %v", key, err)
		}
	}
	for _, key := range keys {
		b, err := st.Read(ctx, key)
		if err != nil || string(b) != key {
			t.Errorf("Read(%q): got %q, %v", key, b, err)
		}
	}

	entries, err := os.ReadDir(st.Root())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != len(keys) {
		t.Errorf("files under root: got %d, want %d", len(entries), len(keys))
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(st.Root()), "escape")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("key escaped the store root: %v", err)
	}

	for _, key := range keys {
		if err := st.Delete(ctx, key); err != nil {
			t.Errorf("Delete(%q): %v", key, err)
		}
	}
}

func TestNew_CreatesNestedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if _, err := New(dir); err != nil {
		t.Fatalf("New: %v", err)
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Fatalf("dir not created: %v", err)
	}
}

func TestStore_DeleteRemovesFile(t *testing.T) {
	ctx := context.Background()
	st := newTempStore(t)
	if err := st.Write(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := st.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(st.Root(), "k")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("file still present: %v", err)
	}
}
