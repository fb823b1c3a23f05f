package vault

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveKeyRef_EnvFormat(t *testing.T) {
	t.Setenv("DOUGHUB_TEST_API_KEY", "sk-test-123")

	v := New()
	key, err := v.ResolveKeyRef("env:DOUGHUB_TEST_API_KEY")
	if err != nil {
		t.Fatalf("ResolveKeyRef: %v", err)
	}
	if key != "sk-test-123" {
		t.Errorf("got %q, want %q", key, "sk-test-123")
	}
}

func TestResolveKeyRef_EnvMissing(t *testing.T) {
	v := New()
	if _, err := v.ResolveKeyRef("env:DOUGHUB_DEFINITELY_UNSET_VAR"); err == nil {
		t.Fatal("expected error for unset environment variable")
	}
}

func TestResolveKeyRef_FileFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.txt")
	if err := os.WriteFile(path, []byte("  sk-file-456\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	v := New()
	key, err := v.ResolveKeyRef("file://" + path)
	if err != nil {
		t.Fatalf("ResolveKeyRef: %v", err)
	}
	if key != "sk-file-456" {
		t.Errorf("got %q, want trimmed %q", key, "sk-file-456")
	}
}

func TestResolveKeyRef_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, []byte("   \n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	v := New()
	if _, err := v.ResolveKeyRef("file://" + path); err == nil {
		t.Fatal("expected error for empty key file")
	}
}

func TestResolveKeyRef_InvalidFormats(t *testing.T) {
	v := New()
	for _, ref := range []string{
		"keyring://wrong-service/openai",
		"keyring://doughub-engine/",
		"vault:openai",
		"",
	} {
		if _, err := v.ResolveKeyRef(ref); err == nil {
			t.Errorf("expected error for key ref %q", ref)
		}
	}
}

func TestGet_EnvFallback(t *testing.T) {
	t.Setenv("DOUGHUB_KEY_FAKEPROVIDER", "sk-env-789")

	v := New()
	key, err := v.Get("fakeprovider")
	if err != nil {
		// Keychain lookup may fail in CI; env fallback must still win.
		t.Fatalf("Get: %v", err)
	}
	if !strings.HasPrefix(key, "sk-") {
		t.Errorf("unexpected key %q", key)
	}
}
