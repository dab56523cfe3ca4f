package blobstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrBlobNotFound is returned by Resolve when the physical file is missing.
var ErrBlobNotFound = errors.New("blob not found")

// Ref identifies one stored blob by content digest.
type Ref struct {
	Digest      string `json:"digest"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
}

// Stat describes a resolved blob on disk.
type Stat struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// BlobStore is the content-addressed byte-storage abstraction used by the
// document registry and the streaming handlers.
type BlobStore interface {
	// Ingest reads the stream once, computing the digest while spooling to
	// a temporary file, then places the content at its canonical path. A
	// second ingest of identical bytes is a no-op returning the same Ref.
	Ingest(ctx context.Context, r io.Reader, originalName string) (Ref, error)

	// Purge removes the blob file unless other documents still reference
	// its digest. A missing file is not an error.
	Purge(ctx context.Context, ref Ref, stillReferenced bool) error

	// Resolve stats the blob file, returning ErrBlobNotFound when absent.
	Resolve(ctx context.Context, ref Ref) (Stat, error)

	// Open returns a reader positioned at the start of the blob content.
	Open(ctx context.Context, ref Ref) (io.ReadSeekCloser, error)
}
