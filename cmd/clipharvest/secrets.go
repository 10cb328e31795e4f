package main

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strings"
	"syscall"

	"clipharvest/pkg/secrets"
	"clipharvest/pkg/ui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// secretsCmd represents the secrets command
var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage stored credentials",
	Long: `Manage the credentials clipharvest reads:

  youtube-api-key   YouTube Data API v3 key, required for YouTube metadata
  tiktok-ms-token   TikTok msToken cookie, optional

Secrets are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only)

Values in the configuration file or environment take precedence.`,
}

var secretsSetCmd = &cobra.Command{
	Use:       "set <name>",
	Short:     "Store a secret (the value is read without echo)",
	Example:   `  clipharvest secrets set youtube-api-key`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: secrets.KnownNames,
	RunE:      runSecretsSet,
}

var secretsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored secrets with masked values",
	Args:  cobra.NoArgs,
	RunE:  runSecretsList,
}

var secretsDeleteCmd = &cobra.Command{
	Use:       "delete <name>",
	Short:     "Remove a secret from every store",
	Args:      cobra.ExactArgs(1),
	ValidArgs: secrets.KnownNames,
	RunE:      runSecretsDelete,
}

func init() {
	rootCmd.AddCommand(secretsCmd)
	secretsCmd.AddCommand(secretsSetCmd)
	secretsCmd.AddCommand(secretsListCmd)
	secretsCmd.AddCommand(secretsDeleteCmd)
}

func secretsManager() (*secrets.Manager, error) {
	dir, err := secrets.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate config directory: %w", err)
	}
	manager, err := secrets.NewManager(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secret store: %w", err)
	}
	return manager, nil
}

func checkSecretName(name string) error {
	if !slices.Contains(secrets.KnownNames, name) {
		return fmt.Errorf("%w: unknown name %q (expected one of %s)", secrets.ErrInvalidSecret, name, strings.Join(secrets.KnownNames, ", "))
	}
	return nil
}

func runSecretsSet(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := checkSecretName(name); err != nil {
		return err
	}
	manager, err := secretsManager()
	if err != nil {
		return err
	}

	fmt.Printf("%s value: ", name)
	value, err := readSecret()
	if err != nil {
		return fmt.Errorf("failed to read value: %w", err)
	}
	if value == "" {
		return fmt.Errorf("%w: empty value", secrets.ErrInvalidSecret)
	}

	if err := manager.Store(name, value); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Stored %s (%s)", name, secrets.Mask(value)))
	return nil
}

func runSecretsList(cmd *cobra.Command, args []string) error {
	manager, err := secretsManager()
	if err != nil {
		return err
	}
	stored, err := manager.List()
	if err != nil {
		return err
	}

	if len(stored) == 0 {
		ui.PrintWarning("No secrets stored")
		fmt.Println("\nTo store the YouTube API key, run:")
		fmt.Println("  clipharvest secrets set youtube-api-key")
		return nil
	}

	ui.PrintHighlight("Stored secrets")
	for _, s := range stored {
		modified := "-"
		if !s.LastModified.IsZero() {
			modified = s.LastModified.Format("2006-01-02 15:04")
		}
		fmt.Printf("  %-18s %-16s %s\n", ui.Cyan(s.Name), secrets.Mask(s.Value), ui.Dim(modified))
	}
	return nil
}

func runSecretsDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := checkSecretName(name); err != nil {
		return err
	}
	manager, err := secretsManager()
	if err != nil {
		return err
	}
	if err := manager.Delete(name); err != nil {
		return err
	}
	ui.PrintSuccess("Deleted " + name)
	return nil
}

// readSecret reads a value from stdin without echoing
func readSecret() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		value, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(value)), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
