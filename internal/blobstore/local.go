package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const sniffLen = 512

// Local stores blobs under root, sharded by the first two hex characters
// of the SHA-256 digest. Filenames keep the original extension so served
// files retain a usable suffix.
type Local struct {
	root string
}

// NewLocal creates a local blob store rooted at root.
func NewLocal(root string) (*Local, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("blob root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

// Ingest streams bytes to a private temp file while hashing, then moves the
// file to its content-addressed path. An already-present destination file
// means identical content was stored before; the temp copy is discarded and
// the existing file is authoritative.
func (l *Local) Ingest(ctx context.Context, r io.Reader, originalName string) (Ref, error) {
	var zero Ref
	if l == nil {
		return zero, fmt.Errorf("blob store is not configured")
	}
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	tmp, err := os.CreateTemp(filepath.Join(l.root, "tmp"), "ingest-*")
	if err != nil {
		return zero, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	h := sha256.New()
	sniff := &sniffBuffer{}
	n, err := io.Copy(io.MultiWriter(tmp, h, sniff), r)
	if err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, err
	}

	digest := hex.EncodeToString(h.Sum(nil))
	ext := normalizeExtension(originalName)
	key := shardKey(digest, ext)
	ref := Ref{
		Digest:      digest,
		Key:         key,
		Size:        n,
		ContentType: detectContentType(sniff.Bytes(), ext),
	}

	dst := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		cleanup()
		return zero, err
	}

	// Dedup path: identical content already stored.
	if _, err := os.Stat(dst); err == nil {
		_ = os.Remove(tmpPath)
		return ref, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		cleanup()
		return zero, err
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		// A concurrent identical ingest may have won the rename.
		if _, statErr := os.Stat(dst); statErr == nil {
			_ = os.Remove(tmpPath)
			return ref, nil
		}
		cleanup()
		return zero, err
	}

	return ref, nil
}

// Purge removes the blob file when no document references its digest
// anymore. Already-removed is an acceptable terminal state.
func (l *Local) Purge(ctx context.Context, ref Ref, stillReferenced bool) error {
	if l == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if stillReferenced {
		return nil
	}
	path, err := l.pathFromKey(ref.Key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Resolve stats the blob file.
func (l *Local) Resolve(ctx context.Context, ref Ref) (Stat, error) {
	var zero Stat
	if l == nil {
		return zero, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	path, err := l.pathFromKey(ref.Key)
	if err != nil {
		return zero, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return zero, ErrBlobNotFound
		}
		return zero, err
	}
	return Stat{Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Open opens the blob file for reading.
func (l *Local) Open(ctx context.Context, ref Ref) (io.ReadSeekCloser, error) {
	if l == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.pathFromKey(ref.Key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return f, nil
}

// SweepResult reports one unreferenced-blob sweep.
type SweepResult struct {
	CandidateCount int   `json:"candidate_count"`
	DeletedCount   int   `json:"deleted_count"`
	FailedCount    int   `json:"failed_count"`
	ReclaimedBytes int64 `json:"reclaimed_bytes"`
	DryRun         bool  `json:"dry_run"`
}

// Sweep walks the shard tree and reclaims blobs whose digest no document
// references. Orphans appear when a registry transaction aborts after its
// ingest; content-addressing makes them harmless until swept.
func (l *Local) Sweep(ctx context.Context, isReferenced func(digest string) (bool, error), apply bool) (SweepResult, error) {
	result := SweepResult{DryRun: !apply}
	if l == nil {
		return result, fmt.Errorf("blob store is not configured")
	}
	if isReferenced == nil {
		return result, fmt.Errorf("reference check is required")
	}

	entries, err := os.ReadDir(l.root)
	if err != nil {
		return result, err
	}
	for _, shard := range entries {
		if !shard.IsDir() || shard.Name() == "tmp" {
			continue
		}
		blobs, err := os.ReadDir(filepath.Join(l.root, shard.Name()))
		if err != nil {
			return result, err
		}
		for _, entry := range blobs {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			if entry.IsDir() {
				continue
			}
			digest := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
			referenced, err := isReferenced(digest)
			if err != nil {
				return result, err
			}
			if referenced {
				continue
			}
			result.CandidateCount++
			info, err := entry.Info()
			if err != nil {
				result.FailedCount++
				continue
			}
			if !apply {
				result.ReclaimedBytes += info.Size()
				continue
			}
			if err := os.Remove(filepath.Join(l.root, shard.Name(), entry.Name())); err != nil {
				result.FailedCount++
				continue
			}
			result.DeletedCount++
			result.ReclaimedBytes += info.Size()
		}
	}
	return result, nil
}

func shardKey(digest, ext string) string {
	return fmt.Sprintf("%s/%s%s", digest[0:2], digest, ext)
}

func normalizeExtension(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(strings.TrimSpace(originalName))))
	if ext == "." {
		return ""
	}
	return ext
}

func detectContentType(head []byte, ext string) string {
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return byExt
	}
	if len(head) > 0 {
		return http.DetectContentType(head)
	}
	return "application/octet-stream"
}

func (l *Local) pathFromKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("blob key is required")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("blob key must be relative")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid blob key")
	}
	return filepath.Join(l.root, clean), nil
}

// sniffBuffer retains the first sniffLen bytes written through it for
// content-type detection.
type sniffBuffer struct {
	buf []byte
}

func (s *sniffBuffer) Write(p []byte) (int, error) {
	if remaining := sniffLen - len(s.buf); remaining > 0 {
		if len(p) < remaining {
			remaining = len(p)
		}
		s.buf = append(s.buf, p[:remaining]...)
	}
	return len(p), nil
}

func (s *sniffBuffer) Bytes() []byte {
	return s.buf
}
