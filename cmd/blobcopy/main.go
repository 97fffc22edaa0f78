package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"runtime/debug"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/blobtools/blobcopy/config"
	"github.com/blobtools/blobcopy/config/loader"
	"github.com/blobtools/blobcopy/copyverify"
	"github.com/blobtools/blobcopy/digest"
	"github.com/blobtools/blobcopy/logging"
	"github.com/blobtools/blobcopy/storage"
)

const description = `blobcopy copies an object between two keys in the same bucket using the
store's server-side copy, then independently verifies the copy by
downloading both objects and comparing their content digests.

'source' and 'destination' are both required - and can be the same value.

Credentials can be given with flags:

    blobcopy -n ACCESS_KEY -k SECRET_KEY -b my-bucket -s src.bin -d dst.bin

or with a config file:

    digest = "sha256"

    [s3_compatible_storage_backend]
    endpoint = "s3.example.com"
    access_key_id = "..."
    secret_access_key = "..."
    bucket = "my-bucket"

Config files are read from /etc/blobcopy.toml and
$XDG_CONFIG_HOME/blobcopy.toml if present, then from the path given with
--config. Flags override the file.

The exit status identifies the result: 0 success, 2 source missing, 3 remote
copy failed, 4 size mismatch, 5 content mismatch, 6 local I/O failure.
`

const defaultEndpoint = "s3.amazonaws.com"

func loadConfig(conf *config.Config, explicitPath string) error {
	for _, configPath := range []string{
		"/etc/blobcopy.toml",
		path.Join(xdg.ConfigHome, "blobcopy.toml"),
	} {
		if _, err := os.Stat(configPath); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("checking config file %s: %w", configPath, err)
		}
		if err := loader.LoadConfigTOML(conf, configPath); err != nil {
			return fmt.Errorf("reading config file %s: %w", configPath, err)
		}
	}
	if explicitPath != "" {
		if err := loader.LoadConfigTOML(conf, explicitPath); err != nil {
			return fmt.Errorf("reading config file %s: %w", explicitPath, err)
		}
	}
	return nil
}

func run(ctx context.Context, stdout, stderr io.Writer, cmd *cobra.Command) (int, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	accountName, _ := flags.GetString("account-name")
	accountKey, _ := flags.GetString("account-key")
	container, _ := flags.GetString("container")
	endpoint, _ := flags.GetString("endpoint")
	insecure, _ := flags.GetBool("insecure")
	digestName, _ := flags.GetString("digest")
	source, _ := flags.GetString("source")
	dest, _ := flags.GetString("destination")
	debugMode, _ := flags.GetBool("debug")

	conf := config.NewDefault()
	conf.Debug = debugMode
	conf.Version = cmd.Version

	if err := loadConfig(conf, configPath); err != nil {
		return 0, err
	}

	if digestName != "" {
		alg, err := digest.ParseAlgorithm(digestName)
		if err != nil {
			return 0, err
		}
		conf.Digest = alg
	}

	if accountName != "" || accountKey != "" || container != "" {
		if accountName == "" || accountKey == "" || container == "" {
			return 0, errors.New("'account-name', 'account-key', and 'container' must be given together")
		}
		if endpoint == "" {
			endpoint = defaultEndpoint
		}
		backend, err := storage.NewS3CompatibleBackend(
			endpoint, accountName, accountKey, container, !insecure, debugMode)
		if err != nil {
			return 0, fmt.Errorf("creating storage backend: %w", err)
		}
		conf.StorageBackend = backend
	}
	if conf.StorageBackend == nil {
		return 0, errors.New("either a config file with a storage backend, or 'account-name' + 'account-key' + 'container', are required")
	}

	if errs := conf.Validate(); len(errs) > 0 {
		return 0, fmt.Errorf("invalid config:\n  %s", strings.Join(errs, "\n  "))
	}

	level := slog.LevelInfo
	if conf.Debug {
		level = slog.LevelDebug
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: level,
	})))

	verifier := &copyverify.Verifier{
		Store:      conf.StorageBackend,
		NewHash:    conf.Digest.NewHash,
		Logger:     logger,
		StagingDir: conf.StagingDir,
	}
	outcome := verifier.CopyAndVerify(ctx, source, dest)
	fmt.Fprintln(stdout, bold(outcome.Message()))
	return outcome.ExitCode(), nil
}

func bold(s string) string {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return "\x1b[1m" + s + "\x1b[0m"
	}
	return s
}

// exitCode is set by RunE so that deferred cleanup runs before main exits.
var exitCode int

var rootCommand = &cobra.Command{
	Use:          "blobcopy",
	Long:         description,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := run(cmd.Context(), os.Stdout, os.Stderr, cmd)
		if err != nil {
			return err
		}
		exitCode = code
		return nil
	},
}

// Version will be set by the linker for release builds.
var Version string

func init() {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		panic("could not read build info")
	}
	if Version == "" {
		Version = buildInfo.Main.Version
	}
	rootCommand.Version = fmt.Sprintf("%s/%s", Version, buildInfo.GoVersion)

	flags := rootCommand.Flags()
	flags.StringP("config", "c", "", "path to configuration file")
	flags.StringP("account-name", "n", "", "storage account name (access key ID)")
	flags.StringP("account-key", "k", "", "storage account key (secret access key)")
	flags.StringP("container", "b", "", "bucket holding both objects")
	flags.String("endpoint", "", "storage endpoint (default "+defaultEndpoint+")")
	flags.Bool("insecure", false, "connect without TLS")
	flags.String("digest", "", "content digest algorithm: sha256 or blake3")
	flags.StringP("source", "s", "", "source object to copy from")
	flags.StringP("destination", "d", "", "destination object to copy to")
	flags.Bool("debug", false, "enable debug logging and request tracing")

	rootCommand.MarkFlagRequired("source")
	rootCommand.MarkFlagRequired("destination")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := rootCommand.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}
