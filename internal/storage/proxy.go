package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Proxy.Get when the object doesn't exist.
var ErrNotFound = errors.New("object not found")

// Proxy streams object bytes to/from a backend when the server proxies
// transfers itself (custom/proxy link-signing mode). Only mounted when
// the composer selects proxy mode (spec.md §4.5).
type Proxy interface {
	Get(ctx context.Context, repo, oid string) (body []byte, contentType string, err error)
	Post(ctx context.Context, repo, oid string, body io.Reader, contentType string) error
}
