package main

import (
	"fmt"
	"os"

	"clipharvest/pkg/config"
	"clipharvest/pkg/secrets"
	"clipharvest/pkg/ui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = ".clipharvest.yaml"

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage clipharvest configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (CLIPHARVEST_*, plus YOUTUBE_API_KEY and ms_token)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with every default",
	Long: `Write a configuration file holding every option at its default value.

The file is created as '.clipharvest.yaml' in the current directory unless a
different path is given with --config. Existing files are never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source.

Credentials are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = defaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		ui.PrintError("Configuration file already exists", path)
		return fmt.Errorf("refusing to overwrite %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Store the YouTube API key with 'clipharvest secrets set youtube-api-key'")
	fmt.Println("2. Adjust countries and pacing in the configuration file")
	fmt.Println("3. Start with 'clipharvest harvest --platform tiktok --hashtag ai --country NL'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(nil)
	if err != nil {
		return err
	}

	display := *cfg
	if display.YouTube.APIKey != "" {
		display.YouTube.APIKey = secrets.Mask(display.YouTube.APIKey)
	}
	if display.TikTok.MSToken != "" {
		display.TikTok.MSToken = secrets.Mask(display.TikTok.MSToken)
	}
	if display.Lock.Password != "" {
		display.Lock.Password = secrets.Mask(display.Lock.Password)
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (CLIPHARVEST_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (searched default locations)")
	}
	fmt.Println("4. Secrets store (credentials only)")
	fmt.Println("5. Default values")
	return nil
}
