// Package copyverify performs a server-side copy of one object to another
// key in the same bucket, then proves the copy correct by re-downloading
// both objects and comparing content digests.
//
// The whole run is a linear chain of gates: the source must exist, the
// remote copy must succeed, the destination size must match the source
// size, and only then are both objects downloaded and digested. The first
// failed gate terminates the run with the corresponding Outcome; nothing is
// retried at this layer.
package copyverify

import (
	"context"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/blobtools/blobcopy/digest"
	"github.com/blobtools/blobcopy/logging"
)

// ErrNotFound is wrapped by ObjectStore implementations when a key does not
// exist.
var ErrNotFound = errors.New("object not found")

// ObjectInfo is a point-in-time metadata snapshot. The store is shared and
// may be mutated by other actors, so a snapshot can be stale by the time it
// is read.
type ObjectInfo struct {
	Size int64
}

// ObjectStore is the capability set the verifier needs from a storage
// backend. Construction and authentication of the backend happen elsewhere.
type ObjectStore interface {
	// Exists reports whether the key currently exists.
	Exists(ctx context.Context, key string) (bool, error)

	// Stat fetches metadata for the key. The error wraps ErrNotFound if the
	// key does not exist.
	Stat(ctx context.Context, key string) (ObjectInfo, error)

	// Copy duplicates sourceKey to destKey using the store's native
	// server-side copy; no object bytes pass through this process.
	Copy(ctx context.Context, sourceKey, destKey string) error

	// Open opens a read stream over the full content of the key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type Verifier struct {
	Store ObjectStore

	// Logger receives advisory progress output. Nil discards it.
	Logger logging.Logger

	// NewHash returns the digest algorithm used for content comparison.
	// Defaults to SHA-256. Both objects in a run always use the same hash.
	NewHash func() hash.Hash

	// StagingDir is where downloaded objects are staged during
	// verification. Empty means the OS temp dir. Staging files are removed
	// before CopyAndVerify returns, on every path.
	StagingDir string
}

// CopyAndVerify runs the full copy-then-verify protocol and returns exactly
// one Outcome. The Outcome is authoritative; log output is advisory only.
func (v *Verifier) CopyAndVerify(ctx context.Context, sourceKey, destKey string) Outcome {
	ctx = logging.ContextWithOperation(ctx, sourceKey, destKey)
	log := v.logger()
	out := Outcome{SourceKey: sourceKey, DestKey: destKey}

	exists, err := v.Store.Exists(ctx, sourceKey)
	if err != nil {
		out.Status = RemoteCopyFailed
		out.Err = fmt.Errorf("checking source: %w", err)
		return out
	}
	if !exists {
		log.Error(ctx, "source object does not exist")
		out.Status = SourceNotFound
		return out
	}

	info, err := v.Store.Stat(ctx, sourceKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Deleted between the existence check and here.
			out.Status = SourceNotFound
			return out
		}
		out.Status = RemoteCopyFailed
		out.Err = fmt.Errorf("reading source metadata: %w", err)
		return out
	}
	out.SourceSize = info.Size

	log.Info(ctx, "copying object", "size", info.Size)
	if err := v.Store.Copy(ctx, sourceKey, destKey); err != nil {
		out.Status = RemoteCopyFailed
		out.Err = fmt.Errorf("server-side copy: %w", err)
		return out
	}

	destInfo, err := v.Store.Stat(ctx, destKey)
	if err != nil {
		out.Status = RemoteCopyFailed
		out.Err = fmt.Errorf("reading destination metadata: %w", err)
		return out
	}
	out.DestSize = destInfo.Size
	if destInfo.Size != info.Size {
		log.Error(ctx, "copy completed but sizes differ",
			"source_size", info.Size, "dest_size", destInfo.Size)
		out.Status = SizeMismatch
		return out
	}

	sourceDigest, err := v.digestObject(ctx, sourceKey)
	if err != nil {
		out.Status = LocalIOFailure
		out.Err = err
		return out
	}
	out.SourceDigest = sourceDigest

	destDigest, err := v.digestObject(ctx, destKey)
	if err != nil {
		out.Status = LocalIOFailure
		out.Err = err
		return out
	}
	out.DestDigest = destDigest

	if !sourceDigest.Equal(destDigest) {
		log.Error(ctx, "copy completed but content differs",
			"source_digest", sourceDigest, "dest_digest", destDigest)
		out.Status = ContentMismatch
		return out
	}

	log.Info(ctx, "copy verified", "size", info.Size, "digest", sourceDigest)
	out.Status = Success
	return out
}

// digestObject downloads one object into a staging file while feeding the
// hash incrementally, so peak memory stays bounded for large objects. The
// staging file is removed before returning even when the download fails
// partway.
func (v *Verifier) digestObject(ctx context.Context, key string) (digest.Value, error) {
	stream, err := v.Store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("opening read stream for %s: %w", key, err)
	}
	defer stream.Close()

	staging, err := os.CreateTemp(v.StagingDir, "blobcopy-*")
	if err != nil {
		return nil, fmt.Errorf("creating staging file: %w", err)
	}
	defer func() {
		staging.Close()
		os.Remove(staging.Name())
	}()

	h := v.newHash()
	if _, err := io.Copy(io.MultiWriter(staging, h), stream); err != nil {
		return nil, fmt.Errorf("staging %s: %w", key, err)
	}
	return digest.Value(h.Sum(nil)), nil
}

func (v *Verifier) newHash() hash.Hash {
	if v.NewHash != nil {
		return v.NewHash()
	}
	return digest.SHA256.NewHash()
}

func (v *Verifier) logger() logging.Logger {
	if v.Logger != nil {
		return v.Logger
	}
	return logging.NewNopLogger()
}
