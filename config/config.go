package config

import (
	"github.com/blobtools/blobcopy/copyverify"
	"github.com/blobtools/blobcopy/digest"
)

// StorageBackend is an object store the verifier can run against, plus
// config-time validation.
type StorageBackend interface {
	copyverify.ObjectStore

	// Validate returns a list of errors if the storage backend's
	// configuration is invalid.
	Validate() []string
}

type Config struct {
	StorageBackend StorageBackend

	// Digest is the content hash algorithm used for verification.
	Digest digest.Algorithm

	// StagingDir is where downloaded objects are staged during
	// verification. Empty means the OS temp dir.
	StagingDir string

	// Runtime options, cannot be set via config.
	Debug   bool
	Version string
}

func NewDefault() *Config {
	return &Config{
		Digest: digest.SHA256,
	}
}

func (conf *Config) Validate() []string {
	var errs []string
	if conf.StorageBackend == nil {
		errs = append(errs, "StorageBackend must not be nil")
	} else {
		errs = append(errs, conf.StorageBackend.Validate()...)
	}
	if _, err := digest.ParseAlgorithm(string(conf.Digest)); err != nil {
		errs = append(errs, "Digest is invalid: "+err.Error())
	}
	if conf.Version == "" {
		errs = append(errs, "Version must not be empty")
	}
	return errs
}
