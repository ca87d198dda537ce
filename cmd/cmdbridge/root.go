package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type rootFlags struct {
	cfgFile string
	policy  policyOverrides
}

func newRootCmd() *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:   "cmdbridge",
		Short: "Validate and run proposed shell commands inside a confined directory",
		Long: `cmdbridge takes candidate commands one at a time, checks them against a
static policy, asks for confirmation and runs them in a fresh shell confined
to the policy root directory.

Commands:
  run      Interactive session reading one command per line
  check    Validate a command without running it
  exec     Validate, confirm and run a single command
  policy   Print the effective policy
  history  List recorded turns`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(f.cfgFile)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.cfgFile, "config", "", "Config file (default: ~/.cmdbridge/config.yaml)")
	pf.StringVar(&f.policy.RootDir, "root", "", "Root directory commands are confined to (overrides the policy)")
	pf.IntVar(&f.policy.TimeoutSeconds, "timeout", 0, "Command timeout in seconds (overrides the policy)")
	pf.String("shell", "", "Shell to run commands with: auto, pwsh, powershell, sh, bash, dash, zsh")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: text or json")
	_ = viper.BindPFlag("shell.name", pf.Lookup("shell"))
	_ = viper.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", pf.Lookup("log-format"))

	cmd.AddCommand(
		newRunCmd(&f),
		newCheckCmd(&f),
		newExecCmd(&f),
		newPolicyCmd(&f),
		newHistoryCmd(),
	)
	return cmd
}

func initConfig(cfgFile string) error {
	setDefaults()
	viper.SetEnvPrefix("CMDBRIDGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile = strings.TrimSpace(cfgFile); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return nil
	}
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(filepath.Join(home, ".cmdbridge"))
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}
