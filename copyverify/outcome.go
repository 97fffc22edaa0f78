package copyverify

import (
	"fmt"

	"github.com/blobtools/blobcopy/digest"
)

type Status int

const (
	Success Status = iota
	SourceNotFound
	RemoteCopyFailed
	SizeMismatch
	ContentMismatch
	LocalIOFailure
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case SourceNotFound:
		return "source-not-found"
	case RemoteCopyFailed:
		return "remote-copy-failed"
	case SizeMismatch:
		return "size-mismatch"
	case ContentMismatch:
		return "content-mismatch"
	case LocalIOFailure:
		return "local-io-failure"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Outcome is the single result of a copy-verify run. Fields beyond Status
// are filled in as far as the run got: sizes once metadata was read,
// digests once content was downloaded, Err for failures with an underlying
// cause.
type Outcome struct {
	Status Status

	SourceKey string
	DestKey   string

	SourceSize int64
	DestSize   int64

	SourceDigest digest.Value
	DestDigest   digest.Value

	Err error
}

func (o Outcome) Ok() bool {
	return o.Status == Success
}

// ExitCode maps the outcome to a process exit status: 0 for success and a
// distinct nonzero code per failure variant so callers can dispatch without
// parsing messages.
func (o Outcome) ExitCode() int {
	switch o.Status {
	case Success:
		return 0
	case SourceNotFound:
		return 2
	case RemoteCopyFailed:
		return 3
	case SizeMismatch:
		return 4
	case ContentMismatch:
		return 5
	case LocalIOFailure:
		return 6
	}
	return 1
}

// Message renders the outcome for humans. Digests are shown as lowercase
// hex.
func (o Outcome) Message() string {
	switch o.Status {
	case Success:
		return fmt.Sprintf("copy of %s to %s verified: %d bytes, digest %s",
			o.SourceKey, o.DestKey, o.SourceSize, o.SourceDigest)
	case SourceNotFound:
		return fmt.Sprintf("cannot copy from %s: object does not exist", o.SourceKey)
	case RemoteCopyFailed:
		return fmt.Sprintf("copying %s to %s failed: %s", o.SourceKey, o.DestKey, o.Err)
	case SizeMismatch:
		return fmt.Sprintf("copy of %s to %s completed, but sizes differ: source is %d bytes, destination is %d bytes",
			o.SourceKey, o.DestKey, o.SourceSize, o.DestSize)
	case ContentMismatch:
		return fmt.Sprintf("copy of %s to %s completed, but content differs: source digest %s, destination digest %s",
			o.SourceKey, o.DestKey, o.SourceDigest, o.DestDigest)
	case LocalIOFailure:
		return fmt.Sprintf("verifying copy of %s to %s failed: %s", o.SourceKey, o.DestKey, o.Err)
	}
	return fmt.Sprintf("unknown outcome for copy of %s to %s", o.SourceKey, o.DestKey)
}
