// Command sonify plays feature vectors and text embeddings as music.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cbegin/sonify-go"
	"github.com/cbegin/sonify-go/internal/config"
	"github.com/cbegin/sonify-go/internal/features"
	"github.com/cbegin/sonify-go/internal/logging"
)

var version = "dev"

// app is the state shared by every subcommand once the root has loaded
// configuration.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	policy     string

	cfg config.Config
	log *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "sonify",
		Short: "Turn feature vectors into music",
		Long: `sonify derives tempo, meter, mode and key from a feature vector and plays
it as a four-voice chamber piece with percussion.

Configuration comes from defaults, an optional YAML file (--config) and
SONIFY_* environment variables, e.g. SONIFY_LOGGING_LEVEL=debug.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: console|json")
	flags.StringVar(&a.policy, "policy", "", "composition policy: dimensional|aggregate")

	root.AddCommand(newPlayCmd(a), newRenderCmd(a), newParamsCmd(a), newConfigCmd(a))
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = a.logFormat
	}
	if flags.Changed("policy") {
		cfg.Policy = a.policy
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	a.cfg = cfg
	a.log = log
	return nil
}

// engineOptions maps configuration onto the engine.
func (a *app) engineOptions() ([]sonify.EngineOption, error) {
	policy, err := features.ByName(a.cfg.Policy)
	if err != nil {
		return nil, err
	}
	reg, err := a.cfg.Registry()
	if err != nil {
		return nil, err
	}
	return []sonify.EngineOption{
		sonify.WithPolicy(policy),
		sonify.WithRegistry(reg),
		sonify.WithLogger(a.log),
		sonify.WithImpactCue(a.cfg.ImpactCue, sonify.DefaultCueDelay),
	}, nil
}
