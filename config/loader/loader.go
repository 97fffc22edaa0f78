package loader

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/blobtools/blobcopy/config"
	"github.com/blobtools/blobcopy/digest"
	"github.com/blobtools/blobcopy/storage"
)

type s3StorageBackend struct {
	Region string `toml:"region"`
	Bucket string `toml:"bucket"`
}

type s3CompatibleStorageBackend struct {
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	Bucket          string `toml:"bucket"`
	UseTLS          *bool  `toml:"use_tls"`
}

type filesystemStorageBackend struct {
	Root string `toml:"root"`
}

type configFile struct {
	Digest     string `toml:"digest"`
	StagingDir string `toml:"staging_dir"`

	S3StorageBackend           *s3StorageBackend           `toml:"s3_storage_backend"`
	S3CompatibleStorageBackend *s3CompatibleStorageBackend `toml:"s3_compatible_storage_backend"`
	FilesystemStorageBackend   *filesystemStorageBackend   `toml:"filesystem_storage_backend"`
}

func LoadConfigTOML(conf *config.Config, path string) error {
	var cfg configFile
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	if len(md.Undecoded()) > 0 {
		return fmt.Errorf("unknown keys in config: %v", md.Undecoded())
	}
	if cfg.Digest != "" {
		alg, err := digest.ParseAlgorithm(cfg.Digest)
		if err != nil {
			return fmt.Errorf("parsing digest: %w", err)
		}
		conf.Digest = alg
	}
	if cfg.StagingDir != "" {
		conf.StagingDir = cfg.StagingDir
	}

	backends := 0
	if cfg.S3StorageBackend != nil {
		backends++
	}
	if cfg.S3CompatibleStorageBackend != nil {
		backends++
	}
	if cfg.FilesystemStorageBackend != nil {
		backends++
	}
	if backends > 1 {
		return fmt.Errorf("at most one storage backend may be configured, got %d", backends)
	}

	if cfg.S3StorageBackend != nil {
		backend, err := storage.NewS3Backend(
			cfg.S3StorageBackend.Region,
			cfg.S3StorageBackend.Bucket,
			storage.DefaultS3ClientFactory,
		)
		if err != nil {
			return fmt.Errorf("creating S3 storage backend: %w", err)
		}
		conf.StorageBackend = backend
	}
	if cfg.S3CompatibleStorageBackend != nil {
		useTLS := true
		if cfg.S3CompatibleStorageBackend.UseTLS != nil {
			useTLS = *cfg.S3CompatibleStorageBackend.UseTLS
		}
		backend, err := storage.NewS3CompatibleBackend(
			cfg.S3CompatibleStorageBackend.Endpoint,
			cfg.S3CompatibleStorageBackend.AccessKeyID,
			cfg.S3CompatibleStorageBackend.SecretAccessKey,
			cfg.S3CompatibleStorageBackend.Bucket,
			useTLS,
			conf.Debug,
		)
		if err != nil {
			return fmt.Errorf("creating S3-compatible storage backend: %w", err)
		}
		conf.StorageBackend = backend
	}
	if cfg.FilesystemStorageBackend != nil {
		conf.StorageBackend = &storage.FilesystemBackend{
			Root: cfg.FilesystemStorageBackend.Root,
		}
	}
	return nil
}

func DumpConfigTOML(conf *config.Config) (string, error) {
	cfg := configFile{
		Digest:     string(conf.Digest),
		StagingDir: conf.StagingDir,
	}
	switch backend := conf.StorageBackend.(type) {
	case *storage.S3Backend:
		cfg.S3StorageBackend = &s3StorageBackend{
			Region: backend.Region,
			Bucket: backend.Bucket,
		}
	case *storage.S3CompatibleBackend:
		// Credentials are never dumped; a reloaded config needs them
		// supplied again.
		useTLS := backend.UseTLS
		cfg.S3CompatibleStorageBackend = &s3CompatibleStorageBackend{
			Endpoint: backend.Endpoint,
			Bucket:   backend.Bucket,
			UseTLS:   &useTLS,
		}
	case *storage.FilesystemBackend:
		cfg.FilesystemStorageBackend = &filesystemStorageBackend{
			Root: backend.Root,
		}
	}
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	return string(buf), nil
}
