package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pawsen/library-org/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
		stdout     bool
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if stdout {
				fmt.Fprint(cmd.OutOrStdout(), config.SampleConfig())
				return nil
			}
			if !overwrite {
				if _, err := os.Stat(targetPath); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", targetPath)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := os.WriteFile(targetPath, []byte(config.SampleConfig()), 0o600); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", targetPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", config.DefaultPath, "Where to write the file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "Print the sample instead of writing it")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the configuration is complete enough to serve",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration OK (database %s)\n", cfg.Database.Driver)
			return nil
		},
	}
}
