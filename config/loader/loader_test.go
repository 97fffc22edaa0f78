package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/blobtools/blobcopy/config"
	"github.com/blobtools/blobcopy/digest"
	"github.com/blobtools/blobcopy/storage"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return configPath
}

func TestLoadConfigTOMLEmptyFile(t *testing.T) {
	conf := config.NewDefault()
	if err := LoadConfigTOML(conf, writeConfig(t, "")); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if conf.Digest != digest.SHA256 {
		t.Errorf("got digest %q, want default sha256", conf.Digest)
	}
	if conf.StorageBackend != nil {
		t.Errorf("got backend %v, want none", conf.StorageBackend)
	}
}

func TestLoadConfigTOMLFilesystemBackend(t *testing.T) {
	conf := config.NewDefault()
	err := LoadConfigTOML(conf, writeConfig(t, `
digest = "blake3"
staging_dir = "/var/tmp"

[filesystem_storage_backend]
root = "/srv/objects"
`))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if conf.Digest != digest.BLAKE3 {
		t.Errorf("got digest %q, want blake3", conf.Digest)
	}
	if conf.StagingDir != "/var/tmp" {
		t.Errorf("got staging dir %q, want /var/tmp", conf.StagingDir)
	}
	want := &storage.FilesystemBackend{Root: "/srv/objects"}
	if diff := cmp.Diff(want, conf.StorageBackend); diff != "" {
		t.Errorf("unexpected backend (-want +got):\n%s", diff)
	}
}

func TestLoadConfigTOMLS3CompatibleBackend(t *testing.T) {
	conf := config.NewDefault()
	err := LoadConfigTOML(conf, writeConfig(t, `
[s3_compatible_storage_backend]
endpoint = "s3.example.com"
access_key_id = "key-id"
secret_access_key = "secret"
bucket = "my-bucket"
use_tls = false
`))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	backend, ok := conf.StorageBackend.(*storage.S3CompatibleBackend)
	if !ok {
		t.Fatalf("got backend %T, want *storage.S3CompatibleBackend", conf.StorageBackend)
	}
	if backend.Bucket != "my-bucket" {
		t.Errorf("got bucket %q, want my-bucket", backend.Bucket)
	}
	if errs := backend.Validate(); len(errs) != 0 {
		t.Errorf("backend validation failed: %v", errs)
	}
}

func TestLoadConfigTOMLUnknownKeys(t *testing.T) {
	conf := config.NewDefault()
	err := LoadConfigTOML(conf, writeConfig(t, `
diggest = "sha256"
`))
	if err == nil || !strings.Contains(err.Error(), "unknown keys") {
		t.Errorf("got %v, want unknown keys error", err)
	}
}

func TestLoadConfigTOMLBadDigest(t *testing.T) {
	conf := config.NewDefault()
	err := LoadConfigTOML(conf, writeConfig(t, `
digest = "crc32"
`))
	if err == nil || !strings.Contains(err.Error(), "digest") {
		t.Errorf("got %v, want digest parse error", err)
	}
}

func TestLoadConfigTOMLMultipleBackends(t *testing.T) {
	conf := config.NewDefault()
	err := LoadConfigTOML(conf, writeConfig(t, `
[filesystem_storage_backend]
root = "/srv/objects"

[s3_compatible_storage_backend]
endpoint = "s3.example.com"
access_key_id = "key-id"
secret_access_key = "secret"
bucket = "my-bucket"
`))
	if err == nil || !strings.Contains(err.Error(), "at most one storage backend") {
		t.Errorf("got %v, want multiple-backends error", err)
	}
}

func TestDumpConfigTOMLS3CompatibleBackend(t *testing.T) {
	backend, err := storage.NewS3CompatibleBackend(
		"s3.example.com", "AKIDEXAMPLE", "sekrit123", "my-bucket", false, false)
	if err != nil {
		t.Fatalf("creating backend: %v", err)
	}
	conf := config.NewDefault()
	conf.StorageBackend = backend

	dumped, err := DumpConfigTOML(conf)
	if err != nil {
		t.Fatalf("failed to dump config: %v", err)
	}
	if strings.Contains(dumped, "AKIDEXAMPLE") || strings.Contains(dumped, "sekrit123") {
		t.Errorf("dumped config leaks credentials:\n%s", dumped)
	}

	loaded := config.NewDefault()
	if err := LoadConfigTOML(loaded, writeConfig(t, dumped)); err != nil {
		t.Fatalf("failed to load dumped config: %v", err)
	}
	reloaded, ok := loaded.StorageBackend.(*storage.S3CompatibleBackend)
	if !ok {
		t.Fatalf("got backend %T, want *storage.S3CompatibleBackend", loaded.StorageBackend)
	}
	if reloaded.Endpoint != backend.Endpoint || reloaded.Bucket != backend.Bucket || reloaded.UseTLS != backend.UseTLS {
		t.Errorf("round trip changed backend: got %s/%s/tls=%v, want %s/%s/tls=%v",
			reloaded.Endpoint, reloaded.Bucket, reloaded.UseTLS,
			backend.Endpoint, backend.Bucket, backend.UseTLS)
	}
}

func TestDumpConfigTOMLRoundTrip(t *testing.T) {
	conf := config.NewDefault()
	conf.Digest = digest.BLAKE3
	conf.StagingDir = "/var/tmp"
	conf.StorageBackend = &storage.FilesystemBackend{Root: "/srv/objects"}

	dumped, err := DumpConfigTOML(conf)
	if err != nil {
		t.Fatalf("failed to dump config: %v", err)
	}

	loaded := config.NewDefault()
	if err := LoadConfigTOML(loaded, writeConfig(t, dumped)); err != nil {
		t.Fatalf("failed to load dumped config: %v", err)
	}
	if loaded.Digest != conf.Digest || loaded.StagingDir != conf.StagingDir {
		t.Errorf("round trip changed config: got %q/%q", loaded.Digest, loaded.StagingDir)
	}
	if diff := cmp.Diff(conf.StorageBackend, loaded.StorageBackend); diff != "" {
		t.Errorf("round trip changed backend (-want +got):\n%s", diff)
	}
}
