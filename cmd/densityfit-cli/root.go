package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"yashubustudio/densityfit/engine"
	"yashubustudio/densityfit/host"
	"yashubustudio/densityfit/scoring"
)

// Set by the linker at release time.
var (
	version = "dev"
	commit  = "none"
)

// cli carries the resolved configuration of one invocation.
type cli struct {
	v      *viper.Viper
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	var defaults scoring.Config
	defaults.ApplyDefaults()

	root := &cobra.Command{
		Use:           "densityfit",
		Short:         "Score atomic models against cryo-EM density maps.",
		Long:          `densityfit runs SCCC, SMOC and NMI fit scores through an external TEMPy scorer.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.initConfig(cmd)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	root.PersistentFlags().String("config", "", "Path to config file (default .densityfit.yaml)")
	root.PersistentFlags().String("engine", defaults.Engine.Command, "Scorer command")
	root.PersistentFlags().StringArray("engine-arg", nil, "Extra argument passed to the scorer (repeatable)")
	root.PersistentFlags().Duration("engine-timeout", 0, "Time limit per scorer call (0 = none)")
	root.PersistentFlags().String("cache-dir", "", "Directory for cached SMOC and NMI results")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log scorer calls and selections to stderr")

	root.AddCommand(newSCCCCmd(c, defaults.SCCC))
	root.AddCommand(newSMOCCmd(c, defaults.SMOC))
	root.AddCommand(newNMICmd(c, defaults.NMI))
	root.AddCommand(newVersionCmd())
	return root
}

// initConfig merges defaults, the config file, DENSITYFIT_* variables and flags.
func (c *cli) initConfig(cmd *cobra.Command) error {
	if err := c.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	if configFile := c.v.GetString("config"); configFile != "" {
		c.v.SetConfigFile(configFile)
	} else {
		c.v.SetConfigName(".densityfit")
		c.v.SetConfigType("yaml")
		c.v.AddConfigPath(".")
		c.v.AddConfigPath("$HOME")
	}
	c.v.SetEnvPrefix("DENSITYFIT")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	if err := c.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	if c.v.GetBool("verbose") {
		c.logger = log.New(cmd.ErrOrStderr(), "densityfit: ", log.LstdFlags)
	}
	return nil
}

// fields reads the scoring parameters shared by every mode.
func (c *cli) fields() scoring.Fields {
	return scoring.Fields{
		Resolution:    c.v.GetString("resolution"),
		Resolution2:   c.v.GetString("resolution2"),
		Sigma:         c.v.GetString("sigma"),
		Window:        c.v.GetString("window"),
		Contour1:      c.v.GetString("contour1"),
		Contour2:      c.v.GetString("contour2"),
		RigidBodyFile: c.v.GetString("rigid"),
	}
}

// engine starts the scorer bridge, wrapped in a result cache when configured.
func (c *cli) engine(colorer engine.Colorer) (engine.Engine, error) {
	b := engine.NewBridge(c.v.GetString("engine"), c.v.GetStringSlice("engine-arg"), colorer, c.logger)
	b.Timeout = c.v.GetDuration("engine-timeout")
	if dir := c.v.GetString("cache-dir"); dir != "" {
		return engine.NewCache(b, dir)
	}
	return b, nil
}

// session opens the given files and selects them in order.
func (c *cli) session(paths ...string) (*host.Session, error) {
	s := host.NewSession(c.logger)
	for _, p := range paths {
		e, err := s.Open(p)
		if err != nil {
			return nil, err
		}
		if err := s.Select(e.ID); err != nil {
			return nil, err
		}
	}
	return s, nil
}
