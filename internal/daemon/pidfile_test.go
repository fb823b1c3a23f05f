package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWritePID_ReadPID(t *testing.T) {
	dir := t.TempDir()

	if err := WritePID(dir); err != nil {
		t.Fatalf("WritePID: %v", err)
	}

	pid, err := ReadPID(dir)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}

	if pid != os.Getpid() {
		t.Errorf("ReadPID got %d, want %d", pid, os.Getpid())
	}
}

func TestReadPID_NoFile(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadPID(dir)
	if err == nil {
		t.Fatal("expected error reading nonexistent PID file")
	}
}

func TestReadPID_InvalidContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, pidFilename)

	if err := os.WriteFile(path, []byte("not-a-number"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := ReadPID(dir)
	if err == nil {
		t.Fatal("expected error parsing invalid PID")
	}
}

func TestRemovePID(t *testing.T) {
	dir := t.TempDir()

	if err := WritePID(dir); err != nil {
		t.Fatalf("WritePID: %v", err)
	}

	if err := RemovePID(dir); err != nil {
		t.Fatalf("RemovePID: %v", err)
	}

	if _, err := ReadPID(dir); err == nil {
		t.Fatal("expected error after RemovePID")
	}
}

func TestRemovePID_NoFile(t *testing.T) {
	dir := t.TempDir()

	if err := RemovePID(dir); err != nil {
		t.Errorf("RemovePID on missing file: %v", err)
	}
}

func TestIsRunning_CurrentProcess(t *testing.T) {
	dir := t.TempDir()

	if IsRunning(dir) {
		t.Fatal("IsRunning with no PID file should be false")
	}

	if err := WritePID(dir); err != nil {
		t.Fatalf("WritePID: %v", err)
	}

	// The PID file holds our own PID, which is certainly alive.
	if !IsRunning(dir) {
		t.Error("IsRunning should report true for the current process")
	}
}
