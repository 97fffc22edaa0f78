package copyverify_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/blobtools/blobcopy/copyverify"
	"github.com/blobtools/blobcopy/digest"
)

func TestOutcomeExitCode(t *testing.T) {
	tests := []struct {
		status copyverify.Status
		want   int
	}{
		{copyverify.Success, 0},
		{copyverify.SourceNotFound, 2},
		{copyverify.RemoteCopyFailed, 3},
		{copyverify.SizeMismatch, 4},
		{copyverify.ContentMismatch, 5},
		{copyverify.LocalIOFailure, 6},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			out := copyverify.Outcome{Status: tt.status}
			if got := out.ExitCode(); got != tt.want {
				t.Errorf("got exit code %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOutcomeMessage(t *testing.T) {
	tests := []struct {
		name    string
		outcome copyverify.Outcome
		want    []string
	}{
		{
			name: "success includes size and hex digest",
			outcome: copyverify.Outcome{
				Status:       copyverify.Success,
				SourceKey:    "a.bin",
				DestKey:      "b.bin",
				SourceSize:   1024,
				SourceDigest: digest.Value{0xde, 0xad, 0xbe, 0xef},
			},
			want: []string{"a.bin", "b.bin", "1024", "deadbeef"},
		},
		{
			name: "source not found names the source",
			outcome: copyverify.Outcome{
				Status:    copyverify.SourceNotFound,
				SourceKey: "missing.bin",
			},
			want: []string{"missing.bin", "does not exist"},
		},
		{
			name: "size mismatch includes both sizes",
			outcome: copyverify.Outcome{
				Status:     copyverify.SizeMismatch,
				SourceKey:  "a.bin",
				DestKey:    "b.bin",
				SourceSize: 2048,
				DestSize:   2047,
			},
			want: []string{"2048", "2047", "sizes differ"},
		},
		{
			name: "content mismatch includes both hex digests",
			outcome: copyverify.Outcome{
				Status:       copyverify.ContentMismatch,
				SourceKey:    "a.bin",
				DestKey:      "b.bin",
				SourceDigest: digest.Value{0xca, 0xfe},
				DestDigest:   digest.Value{0xf0, 0x0d},
			},
			want: []string{"cafe", "f00d", "content differs"},
		},
		{
			name: "remote copy failure includes the cause",
			outcome: copyverify.Outcome{
				Status:    copyverify.RemoteCopyFailed,
				SourceKey: "a.bin",
				DestKey:   "b.bin",
				Err:       errors.New("access denied"),
			},
			want: []string{"access denied"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.outcome.Message()
			for _, want := range tt.want {
				if !strings.Contains(msg, want) {
					t.Errorf("message %q does not contain %q", msg, want)
				}
			}
		})
	}
}
