package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func testLocal(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	return l
}

func TestIngestStoresContentAtShardedPath(t *testing.T) {
	l := testLocal(t)
	ctx := context.Background()

	content := []byte("acta de sesion ordinaria")
	ref, err := l.Ingest(ctx, bytes.NewReader(content), "acta-2024.pdf")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(ref.Digest) != 64 {
		t.Fatalf("expected 64-char hex digest, got %q", ref.Digest)
	}
	if ref.Size != int64(len(content)) {
		t.Fatalf("expected size %d, got %d", len(content), ref.Size)
	}
	wantKey := ref.Digest[0:2] + "/" + ref.Digest + ".pdf"
	if ref.Key != wantKey {
		t.Fatalf("expected key %q, got %q", wantKey, ref.Key)
	}
	if ref.ContentType != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", ref.ContentType)
	}

	stat, err := l.Resolve(ctx, ref)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if stat.Size != ref.Size {
		t.Fatalf("resolved size %d, want %d", stat.Size, ref.Size)
	}
	got, err := os.ReadFile(stat.Path)
	if err != nil {
		t.Fatalf("read blob file: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatal("stored content differs from ingested content")
	}
}

func TestIngestDeduplicatesIdenticalContent(t *testing.T) {
	l := testLocal(t)
	ctx := context.Background()
	content := []byte("same bytes twice")

	first, err := l.Ingest(ctx, bytes.NewReader(content), "a.txt")
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := l.Ingest(ctx, bytes.NewReader(content), "b.txt")
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if first.Digest != second.Digest {
		t.Fatalf("digests differ: %s vs %s", first.Digest, second.Digest)
	}
	if first.Key != second.Key {
		t.Fatalf("keys differ: %s vs %s", first.Key, second.Key)
	}

	// Exactly one file in the shard directory, and the tmp spool is empty.
	shard := filepath.Join(l.root, first.Digest[0:2])
	entries, err := os.ReadDir(shard)
	if err != nil {
		t.Fatalf("read shard dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 file in shard, got %d", len(entries))
	}
	tmpEntries, err := os.ReadDir(filepath.Join(l.root, "tmp"))
	if err != nil {
		t.Fatalf("read tmp dir: %v", err)
	}
	if len(tmpEntries) != 0 {
		t.Fatalf("expected empty tmp dir, got %d entries", len(tmpEntries))
	}
}

func TestIngestConcurrentIdenticalUploads(t *testing.T) {
	l := testLocal(t)
	content := bytes.Repeat([]byte("expediente"), 4096)

	const workers = 8
	refs := make([]Ref, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			refs[i], errs[i] = l.Ingest(context.Background(), bytes.NewReader(content), "exp.bin")
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if refs[i].Digest != refs[0].Digest || refs[i].Key != refs[0].Key {
			t.Fatalf("worker %d got divergent ref", i)
		}
	}
}

func TestPurgeRespectsReferences(t *testing.T) {
	l := testLocal(t)
	ctx := context.Background()

	ref, err := l.Ingest(ctx, strings.NewReader("shared content"), "doc.txt")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if err := l.Purge(ctx, ref, true); err != nil {
		t.Fatalf("purge while referenced: %v", err)
	}
	if _, err := l.Resolve(ctx, ref); err != nil {
		t.Fatalf("blob should survive referenced purge: %v", err)
	}

	if err := l.Purge(ctx, ref, false); err != nil {
		t.Fatalf("purge unreferenced: %v", err)
	}
	if _, err := l.Resolve(ctx, ref); !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound, got %v", err)
	}

	// Removing an already-removed blob is not an error.
	if err := l.Purge(ctx, ref, false); err != nil {
		t.Fatalf("second purge: %v", err)
	}
}

func TestOpenReadsBackContent(t *testing.T) {
	l := testLocal(t)
	ctx := context.Background()

	ref, err := l.Ingest(ctx, strings.NewReader("0123456789"), "seq.dat")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	rc, err := l.Open(ctx, ref)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()

	if _, err := rc.Seek(4, io.SeekStart); err != nil {
		t.Fatalf("seek: %v", err)
	}
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "456789" {
		t.Fatalf("expected tail from offset 4, got %q", got)
	}
}

func TestSweepReclaimsUnreferencedBlobs(t *testing.T) {
	l := testLocal(t)
	ctx := context.Background()

	kept, err := l.Ingest(ctx, strings.NewReader("kept"), "k.txt")
	if err != nil {
		t.Fatalf("ingest kept: %v", err)
	}
	orphan, err := l.Ingest(ctx, strings.NewReader("orphan"), "o.txt")
	if err != nil {
		t.Fatalf("ingest orphan: %v", err)
	}

	isReferenced := func(digest string) (bool, error) {
		return digest == kept.Digest, nil
	}

	dry, err := l.Sweep(ctx, isReferenced, false)
	if err != nil {
		t.Fatalf("dry sweep: %v", err)
	}
	if dry.CandidateCount != 1 || dry.DeletedCount != 0 || !dry.DryRun {
		t.Fatalf("unexpected dry result: %+v", dry)
	}
	if _, err := l.Resolve(ctx, orphan); err != nil {
		t.Fatalf("dry run must not delete: %v", err)
	}

	applied, err := l.Sweep(ctx, isReferenced, true)
	if err != nil {
		t.Fatalf("apply sweep: %v", err)
	}
	if applied.DeletedCount != 1 {
		t.Fatalf("expected 1 deletion, got %+v", applied)
	}
	if _, err := l.Resolve(ctx, orphan); !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("orphan should be gone, got %v", err)
	}
	if _, err := l.Resolve(ctx, kept); err != nil {
		t.Fatalf("kept blob must survive: %v", err)
	}
}

func TestIngestWithoutExtension(t *testing.T) {
	l := testLocal(t)
	ref, err := l.Ingest(context.Background(), strings.NewReader("plain text content here"), "SINEXTENSION")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if filepath.Ext(ref.Key) != "" {
		t.Fatalf("expected no extension in key, got %q", ref.Key)
	}
	if ref.ContentType == "" {
		t.Fatal("expected sniffed content type")
	}
}
