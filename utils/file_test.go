package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileExists(t *testing.T) {
	tmpFile, err := os.CreateTemp(t.TempDir(), "test")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	_ = tmpFile.Close()

	if !FileExists(tmpFile.Name()) {
		t.Errorf("FileExists(%q) = false, want true", tmpFile.Name())
	}
	if FileExists("/nonexistent/file") {
		t.Error("FileExists(/nonexistent/file) = true, want false")
	}
	if FileExists(t.TempDir()) {
		t.Error("FileExists() = true for directory, want false")
	}
}

func TestEnsureDir(t *testing.T) {
	newDir := filepath.Join(t.TempDir(), "new", "nested", "dir")

	if err := EnsureDir(newDir); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	if !DirExists(newDir) {
		t.Errorf("EnsureDir() did not create %q", newDir)
	}
	if err := EnsureDir(newDir); err != nil {
		t.Errorf("EnsureDir() on existing dir error = %v", err)
	}
}

func TestNonEmptyFileSize(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "full.mp4")
	empty := filepath.Join(dir, "empty.mp4")
	if err := os.WriteFile(full, []byte("frames"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		size    int64
		wantErr bool
	}{
		{"non-empty file", full, 6, false},
		{"empty file", empty, 0, true},
		{"missing file", filepath.Join(dir, "missing.mp4"), 0, true},
		{"directory", dir, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, err := NonEmptyFileSize(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NonEmptyFileSize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if size != tt.size {
				t.Errorf("NonEmptyFileSize() = %d, want %d", size, tt.size)
			}
		})
	}
}

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.session")

	if err := WriteFileAtomic(path, []byte("Status=RECORDING\n"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	if err := WriteFileAtomic(path, []byte("Status=CRASH_RECORDED\n"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "Status=CRASH_RECORDED\n" {
		t.Errorf("unexpected content %q", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestCopyFileAndChecksum(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	dst := filepath.Join(dir, "dst.mp4")
	if err := os.WriteFile(src, []byte("video payload"), 0o600); err != nil {
		t.Fatal(err)
	}

	n, err := CopyFile(src, dst)
	if err != nil {
		t.Fatalf("CopyFile() error = %v", err)
	}
	if n != int64(len("video payload")) {
		t.Errorf("CopyFile() copied %d bytes", n)
	}

	sum, err := CalculateFileSHA256(src)
	if err != nil {
		t.Fatalf("CalculateFileSHA256() error = %v", err)
	}
	ok, err := VerifyFileSHA256(dst, sum)
	if err != nil {
		t.Fatalf("VerifyFileSHA256() error = %v", err)
	}
	if !ok {
		t.Error("copied file checksum does not match source")
	}
}

func TestPathWithinBase(t *testing.T) {
	base := filepath.Join(t.TempDir(), "videos")

	tests := []struct {
		name    string
		target  string
		wantErr bool
	}{
		{name: "direct child", target: filepath.Join(base, "a.mp4")},
		{name: "nested", target: filepath.Join(base, "2024", "b.mp4")},
		{name: "base itself", target: base},
		{name: "sibling with shared prefix", target: base + "-old" + string(filepath.Separator) + "c.mp4", wantErr: true},
		{name: "traversal", target: filepath.Join(base, "..", "etc", "passwd"), wantErr: true},
		{name: "unrelated absolute", target: filepath.Join(t.TempDir(), "d.mp4"), wantErr: true},
		{name: "null byte", target: filepath.Join(base, "a\x00.mp4"), wantErr: true},
		{name: "dotdot-prefixed name", target: filepath.Join(base, "..hidden.mp4")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PathWithinBase(base, tt.target)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PathWithinBase() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != filepath.Clean(tt.target) {
				t.Errorf("PathWithinBase() = %q, want %q", got, filepath.Clean(tt.target))
			}
		})
	}
}
