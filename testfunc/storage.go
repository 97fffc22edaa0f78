package testfunc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/blobtools/blobcopy/copyverify"
)

// Call records one method invocation on a MemoryObjectStore.
type Call struct {
	Op      string
	Key     string
	DestKey string
}

// MemoryObjectStore is a map-backed object store that records every call
// and supports fault injection, so tests can drive the verifier into each
// outcome.
type MemoryObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	Calls []Call

	// Fault injection.
	StatErrs      map[string]error
	OpenErrs      map[string]error
	ReadErrs      map[string]error
	CopyErr       error
	CorruptCopies bool
	// TruncateCopies drops this many trailing bytes from copied objects.
	TruncateCopies int
}

func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{
		objects:  make(map[string][]byte),
		StatErrs: make(map[string]error),
		OpenErrs: make(map[string]error),
		ReadErrs: make(map[string]error),
	}
}

func (s *MemoryObjectStore) SetObject(key string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = slices.Clone(content)
}

func (s *MemoryObjectStore) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.objects[key]
	return slices.Clone(content), ok
}

// Ops returns the operation names of all recorded calls, in order.
func (s *MemoryObjectStore) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := make([]string, 0, len(s.Calls))
	for _, call := range s.Calls {
		ops = append(ops, call.Op)
	}
	return ops
}

func (s *MemoryObjectStore) record(call Call) {
	s.Calls = append(s.Calls, call)
}

func (s *MemoryObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: "Exists", Key: key})
	_, ok := s.objects[key]
	return ok, nil
}

func (s *MemoryObjectStore) Stat(ctx context.Context, key string) (copyverify.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: "Stat", Key: key})
	if err := s.StatErrs[key]; err != nil {
		return copyverify.ObjectInfo{}, err
	}
	content, ok := s.objects[key]
	if !ok {
		return copyverify.ObjectInfo{}, fmt.Errorf("statting %s: %w", key, copyverify.ErrNotFound)
	}
	return copyverify.ObjectInfo{Size: int64(len(content))}, nil
}

func (s *MemoryObjectStore) Copy(ctx context.Context, sourceKey, destKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: "Copy", Key: sourceKey, DestKey: destKey})
	if s.CopyErr != nil {
		return s.CopyErr
	}
	content, ok := s.objects[sourceKey]
	if !ok {
		return fmt.Errorf("copying %s: %w", sourceKey, copyverify.ErrNotFound)
	}
	copied := slices.Clone(content)
	if s.CorruptCopies && len(copied) > 0 {
		copied[len(copied)-1] ^= 0xff
	}
	if s.TruncateCopies > 0 && len(copied) >= s.TruncateCopies {
		copied = copied[:len(copied)-s.TruncateCopies]
	}
	s.objects[destKey] = copied
	return nil
}

func (s *MemoryObjectStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(Call{Op: "Open", Key: key})
	if err := s.OpenErrs[key]; err != nil {
		return nil, err
	}
	content, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("opening %s: %w", key, copyverify.ErrNotFound)
	}
	if err := s.ReadErrs[key]; err != nil {
		// Yield half the content, then fail, to exercise partial staging.
		return io.NopCloser(&failingReader{
			r:   bytes.NewReader(content[:len(content)/2]),
			err: err,
		}), nil
	}
	return io.NopCloser(bytes.NewReader(slices.Clone(content))), nil
}

func (s *MemoryObjectStore) Validate() []string {
	return nil
}

type failingReader struct {
	r   *bytes.Reader
	err error
}

func (f *failingReader) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if err == io.EOF {
		return n, f.err
	}
	return n, err
}
