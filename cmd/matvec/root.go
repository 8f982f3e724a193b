package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/notargets/clmatvec/config"
	"github.com/notargets/clmatvec/device"
	"github.com/notargets/clmatvec/device/emulator"
	"github.com/notargets/clmatvec/device/occa"
	"github.com/notargets/clmatvec/device/opencl"
	"github.com/notargets/clmatvec/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once flags are parsed
type app struct {
	v       *viper.Viper
	cfgFile string
	envFile string
	cfg     *config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "matvec",
		Short: "Dispatch a matrix-vector product to a compute device and check it",
		Long: `matvec compiles a matrix-vector kernel for an OpenCL or OCCA device,
runs it on a reference input and validates the device result against a
host computation.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "YAML config file")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	flags.String("backend", "", "device backend: opencl, occa or emulator")
	flags.String("class", "", "device class: gpu, accelerator, cpu or all")
	flags.String("fallback", "", "fall back to any device class when none matches: none or any")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("log-file", "", "also write JSON logs to this file")
	for key, name := range map[string]string{
		"backend":         "backend",
		"device.class":    "class",
		"device.fallback": "fallback",
		"logging.level":   "log-level",
		"logging.file":    "log-file",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(name))
	}

	root.AddCommand(newRunCmd(a), newDevicesCmd(a))
	return root
}

func (a *app) init() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", a.envFile, err)
		}
	}
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.LoggingValue())
	if err != nil {
		return err
	}
	a.logger = logger.Named("matvec")
	return nil
}

// driver constructs the configured backend
func (a *app) driver() (device.Driver, error) {
	switch a.cfg.Backend {
	case "opencl":
		return opencl.New(), nil
	case "occa":
		return occa.New(a.cfg.OCCA.Modes...), nil
	case "emulator":
		return emulator.New(), nil
	}
	return nil, fmt.Errorf("unknown backend %q", a.cfg.Backend)
}
