// Package storage implements the MetaRequester (C3) and StorageProxy
// (C5) capabilities against a local filesystem or an S3-compatible
// object store.
package storage

import (
	"context"
	"regexp"
)

// MetaResult reports whether an object exists in a repo and, if so, its
// size. exists=false implies size=0 (spec.md §3 invariant).
type MetaResult struct {
	Repo   string
	Oid    string
	Exists bool
	Size   uint64
}

// MetaRequester answers (exists, size) for a (repo, oid) pair. The
// context cancels an in-flight lookup when the caller drops.
type MetaRequester interface {
	GetMetaResult(ctx context.Context, repo, oid string) (MetaResult, error)
}

// oidShape is the path-traversal guard applied before any oid is used to
// build a filesystem path: exactly one dot, surrounded by runs (possibly
// empty) of lowercase alphanumerics/hyphen/underscore.
var oidShape = regexp.MustCompile(`^[a-z0-9\-_]*\.[a-z0-9\-_]*$`)

// ValidOidShape reports whether oid is safe to use as a filesystem path
// component. The local backend rejects anything else as not-found
// before ever touching disk; the S3 backend omits the guard since
// bucket keys are not filesystem paths.
func ValidOidShape(oid string) bool {
	return oidShape.MatchString(oid)
}
