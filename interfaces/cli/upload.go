package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/artifact-go/domain/config"
	infraconfig "github.com/felixgeelhaar/artifact-go/infrastructure/config"
	"github.com/felixgeelhaar/artifact-go/infrastructure/logging"
	"github.com/felixgeelhaar/artifact-go/infrastructure/observability"
	"github.com/felixgeelhaar/artifact-go/infrastructure/storage/memory"
	api "github.com/felixgeelhaar/artifact-go/interfaces/api"
)

// uploadOptions holds options for the upload command.
type uploadOptions struct {
	configPath       string
	name             string
	root             string
	compressionLevel int
	archiveDir       string
	logLevel         string
	jsonOutput       bool
	dryRun           bool
	env              envOptions
}

// newUploadCmd creates the upload command.
func (a *App) newUploadCmd() *cobra.Command {
	opts := &uploadOptions{}

	cmd := &cobra.Command{
		Use:   "upload [files...]",
		Short: "Archive files and upload them as a named artifact",
		Long: `Archive the given files into one zip and upload it as a named artifact.

Relative paths are interpreted against the root directory and keep their
relative layout inside the archive. Paths outside the root are rejected.

Examples:
  # Upload test reports from the workspace
  artifact upload -n test-report reports/junit.xml reports/coverage.html

  # Store without compression and print the result as JSON
  artifact upload -n binaries --compression-level 0 --json dist/app

  # Build the archive and report what would be stored
  artifact upload -n logs --dry-run build/logs/run.log`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runUpload(cmd.Context(), cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "Artifact name (required)")
	cmd.Flags().StringVarP(&opts.root, "root", "r", ".", "Root directory the files are relative to")
	cmd.Flags().IntVar(&opts.compressionLevel, "compression-level", 0, "Deflate level 0-9 (overrides config)")
	cmd.Flags().StringVar(&opts.archiveDir, "archive-dir", "", "Directory to write the archive to (default: root)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the result as JSON")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Build the archive but store it in memory only")
	opts.env.addFlags(cmd.Flags())

	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// runUpload loads configuration, wires the client and uploads files.
func (a *App) runUpload(ctx context.Context, cmd *cobra.Command, opts *uploadOptions, files []string) error {
	loader := infraconfig.NewLoaderWithOptions(append(opts.env.loaderOptions(), infraconfig.WithValidation(false))...)
	cfg, err := loader.Resolve(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cmd.Flags().Changed("compression-level") {
		cfg.Upload.CompressionLevel = opts.compressionLevel
	}
	if opts.archiveDir != "" {
		cfg.Upload.ArchiveDir = opts.archiveDir
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: a.stderr,
	})

	provider, err := observability.New(a.observabilityOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Add(logging.ErrorField(err)).Msg("failed to flush telemetry")
		}
	}()

	clientOpts := []api.ClientOption{api.WithObservability(provider)}
	if opts.dryRun {
		clientOpts = append(clientOpts, api.WithGateway(memory.NewDryRun()))
	}

	client, err := api.NewClient(ctx, cfg, clientOpts...)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	result, err := client.UploadArtifact(ctx, opts.name, files, opts.root)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if opts.dryRun {
		_, _ = fmt.Fprintf(a.stdout, "Dry run: artifact %s was archived but not stored.\n", opts.name)
	} else {
		_, _ = fmt.Fprintf(a.stdout, "Uploaded artifact %s\n", opts.name)
	}
	_, _ = fmt.Fprintf(a.stdout, "  Key:     %s\n", result.Key)
	if result.URL != "" {
		_, _ = fmt.Fprintf(a.stdout, "  URL:     %s\n", result.URL)
	}
	_, _ = fmt.Fprintf(a.stdout, "  Size:    %d bytes\n", result.Size)
	_, _ = fmt.Fprintf(a.stdout, "  Entries: %d\n", result.Entries)
	_, _ = fmt.Fprintf(a.stdout, "  Digest:  %s\n", result.Digest)
	for _, skipped := range result.Skipped {
		_, _ = fmt.Fprintf(a.stdout, "  Skipped: %s\n", skipped)
	}
	return nil
}

func (a *App) observabilityOptions(cfg *config.Config) []observability.Option {
	opts := []observability.Option{
		observability.WithServiceVersion(Version),
		observability.WithMetrics(),
	}
	if cfg.Tracing.ServiceName != "" {
		opts = append(opts, observability.WithServiceName(cfg.Tracing.ServiceName))
	}
	if cfg.Tracing.SampleRate > 0 {
		opts = append(opts, observability.WithSampleRate(cfg.Tracing.SampleRate))
	}

	switch observability.ExporterType(cfg.Tracing.Exporter) {
	case observability.ExporterStdout:
		opts = append(opts, observability.WithStdoutTracing(a.stderr))
	case observability.ExporterOTLP:
		opts = append(opts,
			observability.WithTracing(observability.ExporterOTLP, cfg.Tracing.Endpoint),
			observability.WithTracingInsecure(),
		)
	}
	return opts
}
