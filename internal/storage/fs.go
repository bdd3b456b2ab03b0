package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FSBackend is the local-filesystem MetaRequester and StorageProxy
// implementation: objects live at <root>/<repo>/objects/<oid> and, in
// proxy mode, their declared content type sits alongside at
// <root>/<repo>/mime-types/<oid>.mime.
type FSBackend struct {
	root string
}

// NewFSBackend builds an FSBackend rooted at root (FS_ROOT_PATH).
func NewFSBackend(root string) *FSBackend {
	return &FSBackend{root: root}
}

func (b *FSBackend) objectPath(repo, oid string) string {
	return filepath.Join(b.root, repo, "objects", oid)
}

func (b *FSBackend) mimePath(repo, oid string) string {
	return filepath.Join(b.root, repo, "mime-types", oid+".mime")
}

// GetMetaResult implements MetaRequester. An oid failing the path-shape
// regex is reported not-found without touching disk (traversal guard).
// Local stat calls don't block on the context; it's accepted for
// interface uniformity.
func (b *FSBackend) GetMetaResult(ctx context.Context, repo, oid string) (MetaResult, error) {
	if !ValidOidShape(oid) {
		return MetaResult{Repo: repo, Oid: oid}, nil
	}
	info, err := os.Stat(b.objectPath(repo, oid))
	if err != nil {
		return MetaResult{Repo: repo, Oid: oid}, nil
	}
	return MetaResult{Repo: repo, Oid: oid, Exists: true, Size: uint64(info.Size())}, nil
}

// Get implements storage.Proxy: reads the object body and its sidecar
// content type. A missing mime sidecar yields an empty content type
// rather than an error, since it's optional texture, not part of the
// object identity.
func (b *FSBackend) Get(ctx context.Context, repo, oid string) ([]byte, string, error) {
	if !ValidOidShape(oid) {
		return nil, "", ErrNotFound
	}
	data, err := os.ReadFile(b.objectPath(repo, oid))
	if err != nil {
		return nil, "", ErrNotFound
	}
	contentType, _ := os.ReadFile(b.mimePath(repo, oid))
	return data, string(contentType), nil
}

// Post implements storage.Proxy: writes the object body and its
// declared content type, creating parent directories as needed.
func (b *FSBackend) Post(ctx context.Context, repo, oid string, body io.Reader, contentType string) error {
	if !ValidOidShape(oid) {
		return fmt.Errorf("invalid oid shape: %s", oid)
	}
	objectPath := b.objectPath(repo, oid)
	if err := os.MkdirAll(filepath.Dir(objectPath), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	f, err := os.Create(objectPath)
	if err != nil {
		return fmt.Errorf("create object file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("write object body: %w", err)
	}

	mimePath := b.mimePath(repo, oid)
	if err := os.MkdirAll(filepath.Dir(mimePath), 0o755); err != nil {
		return fmt.Errorf("create mime dir: %w", err)
	}
	return os.WriteFile(mimePath, []byte(contentType), 0o644)
}
