// Package cli implements the actimeta command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/actimeta/internal/fieldmap"
	"github.com/mesh-intelligence/actimeta/internal/mutate"
	"github.com/mesh-intelligence/actimeta/internal/paths"
	"github.com/mesh-intelligence/actimeta/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Viper keys. Each is bound to a persistent flag of the same name and to
// ACTIMETA_<KEY> in the environment.
const (
	keyConfig    = "config"
	keyLogLevel  = "log-level"
	keyLogFormat = "log-format"
)

// errFailed is returned when at least one file failed; details have
// already been printed.
var errFailed = errors.New("one or more files failed")

// app carries state shared by subcommands of one root command.
type app struct {
	v      *viper.Viper
	log    *zap.Logger
	engine *mutate.Engine
}

// NewRootCmd creates the top-level "actimeta" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "actimeta",
		Short: "Edit subject metadata in .agd and .gt3x recordings",
		Long: "actimeta writes subject metadata (name, sex, height, mass, age, date of birth,\n" +
			"handedness, body placement) into ActiGraph .agd and .gt3x files, keeping a backup\n" +
			"for the duration of each write and restoring it on failure.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(a.v.GetString(keyLogLevel), a.v.GetString(keyLogFormat), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.String(keyConfig, "", "field-map document (default: ./actimeta.yaml, then user config dir, then built-in)")
	pf.String(keyLogLevel, "warn", "log level: debug, info, warn, error")
	pf.String(keyLogFormat, "console", "log format: console or json")
	for _, key := range []string{keyConfig, keyLogLevel, keyLogFormat} {
		_ = a.v.BindPFlag(key, pf.Lookup(key))
	}
	a.v.SetEnvPrefix("ACTIMETA")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(newVersionCmd())
	root.AddCommand(newMutateCmd(a))
	root.AddCommand(newValidateCmd(a))
	root.AddCommand(newInspectCmd(a))
	root.AddCommand(newTicksCmd())
	root.AddCommand(newConfigCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case types.ConfigurationError.Has(err):
		return exitSysError
	default:
		return exitUserError
	}
}

// configPath resolves the field-map document to load. The --config flag is
// read through viper so that ACTIMETA_CONFIG also applies.
func (a *app) configPath() (string, error) {
	return paths.ResolveConfigFile(a.v.GetString(keyConfig))
}

// loadConfig reads the field-map document, or the built-in one if none is
// found.
func (a *app) loadConfig() (types.Config, string, error) {
	path, err := a.configPath()
	if err != nil {
		return types.Config{}, "", types.ConfigurationError.Wrap(err)
	}
	cfg, err := fieldmap.Load(path)
	if err != nil {
		return types.Config{}, path, err
	}
	a.log.Debug("field map loaded", zap.String("path", path))
	return cfg, path, nil
}

// mutator returns the engine, building it on first use.
func (a *app) mutator() (*mutate.Engine, error) {
	if a.engine != nil {
		return a.engine, nil
	}
	cfg, _, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	e, err := mutate.New(cfg, a.log)
	if err != nil {
		return nil, err
	}
	a.engine = e
	return e, nil
}

func newLogger(level, format string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	var enc zapcore.Encoder
	switch format {
	case "json":
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "console":
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	default:
		return nil, fmt.Errorf("log format %q: want console or json", format)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}
