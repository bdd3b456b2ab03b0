package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestValidOidShape(t *testing.T) {
	tests := []struct {
		oid  string
		want bool
	}{
		{"test2.txt", true},
		{"object-1.bin", true},
		{"a_b.c_d", true},
		// Either side of the dot may be empty; only the single dot is
		// mandatory.
		{"foo.", true},
		{".mime", true},
		{"../../../secret/my_secret.txt", false},
		{"noext", false},
		{"two.dots.here", false},
		{"UPPER.txt", false},
		{"", false},
		{"has space.txt", false},
		{"slash/inside.txt", false},
	}
	for _, tt := range tests {
		if got := ValidOidShape(tt.oid); got != tt.want {
			t.Errorf("ValidOidShape(%q) = %v, want %v", tt.oid, got, tt.want)
		}
	}
}

func TestFSGetMetaResultMissing(t *testing.T) {
	b := NewFSBackend(t.TempDir())

	meta, err := b.GetMetaResult(context.Background(), "testing", "test2.txt")
	if err != nil {
		t.Fatalf("GetMetaResult: %v", err)
	}
	if meta.Exists {
		t.Error("Exists = true for missing object")
	}
	if meta.Size != 0 {
		t.Errorf("Size = %d, want 0 when object is missing", meta.Size)
	}
}

func TestFSGetMetaResultExisting(t *testing.T) {
	root := t.TempDir()
	objDir := filepath.Join(root, "testing", "objects")
	if err := os.MkdirAll(objDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(objDir, "test2.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	meta, err := NewFSBackend(root).GetMetaResult(context.Background(), "testing", "test2.txt")
	if err != nil {
		t.Fatalf("GetMetaResult: %v", err)
	}
	if !meta.Exists {
		t.Fatal("Exists = false for existing object")
	}
	if meta.Size != 5 {
		t.Errorf("Size = %d, want 5", meta.Size)
	}
}

func TestFSTraversalOidNeverTouchesDisk(t *testing.T) {
	root := t.TempDir()
	// Plant a file outside the objects directory that a traversal oid
	// would reach.
	secretDir := filepath.Join(root, "secret")
	if err := os.MkdirAll(secretDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(secretDir, "my_secret.txt"), []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := NewFSBackend(filepath.Join(root, "store"))
	oid := "../../../secret/my_secret.txt"

	meta, err := b.GetMetaResult(context.Background(), "testing", oid)
	if err != nil {
		t.Fatalf("GetMetaResult: %v", err)
	}
	if meta.Exists {
		t.Error("traversal oid reported as existing")
	}

	if _, _, err := b.Get(context.Background(), "testing", oid); err == nil {
		t.Error("Get with traversal oid succeeded")
	}
	if err := b.Post(context.Background(), "testing", oid, bytes.NewReader([]byte("x")), "text/plain"); err == nil {
		t.Error("Post with traversal oid succeeded")
	}
	if _, err := os.Stat(filepath.Join(root, "secret", "my_secret.txt.mime")); !os.IsNotExist(err) {
		t.Error("Post with traversal oid wrote outside the store")
	}
}

func TestFSProxyRoundTrip(t *testing.T) {
	b := NewFSBackend(t.TempDir())

	body := []byte("test of some data from integration test")
	contentType := "custom/my-mime-type"
	if err := b.Post(context.Background(), "testing", "test2.txt", bytes.NewReader(body), contentType); err != nil {
		t.Fatalf("Post: %v", err)
	}

	got, gotType, err := b.Get(context.Background(), "testing", "test2.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("body = %q, want %q", got, body)
	}
	if gotType != contentType {
		t.Errorf("content type = %q, want %q", gotType, contentType)
	}

	// The upload must now be visible to the meta requester.
	meta, err := b.GetMetaResult(context.Background(), "testing", "test2.txt")
	if err != nil {
		t.Fatalf("GetMetaResult: %v", err)
	}
	if !meta.Exists || meta.Size != uint64(len(body)) {
		t.Errorf("meta = %+v after upload", meta)
	}
}

func TestFSGetMissingObject(t *testing.T) {
	b := NewFSBackend(t.TempDir())
	if _, _, err := b.Get(context.Background(), "testing", "missing.bin"); err != ErrNotFound {
		t.Fatalf("Get err = %v, want ErrNotFound", err)
	}
}
