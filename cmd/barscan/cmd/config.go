package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and create configuration files",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration as YAML",
	Long: `Print the configuration after merging defaults, the config file,
BARSCAN_* environment variables and command line flags.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		data, err := config.MarshalYAML(cfg)
		if err != nil {
			return fmt.Errorf("failed to render configuration: %w", err)
		}
		if used := GetConfigLoader().GetConfigFileUsed(); used != "" {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# config file: %s\n", used)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write a configuration file with the default settings",
	Long: `Write the default configuration as YAML. The file defaults to
barscan.yaml in the current directory; existing files are kept unless
--force is given.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := config.ConfigFileName + ".yaml"
		if len(args) == 1 {
			filename = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if err := config.GenerateDefaultConfigFile(filename, force); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", filename)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd)
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
}
