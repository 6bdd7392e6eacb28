package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	infraconfig "github.com/felixgeelhaar/artifact-go/infrastructure/config"
)

// envOptions controls ${VAR} expansion in the configuration file.
type envOptions struct {
	expand bool
	strict bool
}

func (e *envOptions) addFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&e.expand, "expand-env", true, "Expand ${VAR} references in the configuration file")
	fs.BoolVar(&e.strict, "strict-env", false, "Fail when a referenced environment variable is unset")
}

func (e *envOptions) loaderOptions() []infraconfig.LoaderOption {
	return []infraconfig.LoaderOption{
		infraconfig.WithEnvExpansion(e.expand),
		infraconfig.WithStrictEnv(e.strict),
	}
}

// configOptions holds options for the config command.
type configOptions struct {
	configPath string
	jsonOutput bool
	validate   bool
	env        envOptions
}

// newConfigCmd creates the config command.
func (a *App) newConfigCmd() *cobra.Command {
	opts := &configOptions{}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with credentials masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showConfig(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON instead of YAML")
	cmd.Flags().BoolVar(&opts.validate, "validate", false, "Fail when the configuration is invalid")
	opts.env.addFlags(cmd.Flags())

	return cmd
}

func (a *App) showConfig(opts *configOptions) error {
	loader := infraconfig.NewLoaderWithOptions(append(opts.env.loaderOptions(), infraconfig.WithValidation(opts.validate))...)
	cfg, err := loader.Resolve(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	redacted := cfg.Redacted()
	if opts.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(redacted)
	}

	enc := yaml.NewEncoder(a.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(redacted); err != nil {
		return err
	}
	return enc.Close()
}
