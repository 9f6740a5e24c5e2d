package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/btclink/internal/config"
	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify btclink configuration settings.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.btclink/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.`,
	Example: `  btclink config init
  btclink config init --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration after the config file, environment
variables and flags have been applied.`,
	Example: `  btclink config show
  btclink config show -o json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short:   "Print the configuration file path",
	Long:    `Print the path of the configuration file for the active home directory.`,
	Example: `  btclink config path
  btclink --home /tmp/btclink config path`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), configFile())
		return err
	},
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value by its path.

The path uses dot notation with the YAML key names.`,
	Example: `  btclink config get bridge.addr
  btclink config get wallet.poll_interval`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value by its path and save the file.

The updated configuration is validated before it is written.`,
	Example: `  btclink config set explorer.url https://mempool.space/api
  btclink config set wallet.store keyring
  btclink config set logging.level debug`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.GroupID = groupConfig
	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd, configGetCmd, configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

// configFile is the config file of the active home directory.
func configFile() string {
	return config.Path(config.ExpandHome(cfg.Home))
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := configFile()

	if _, err := os.Stat(path); err == nil && !configForce {
		return linkerr.WithSuggestion(
			linkerr.ErrGeneral,
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", path),
		)
	}

	defaults := config.Defaults()
	defaults.Home = cfg.Home
	if err := config.Save(defaults, path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	_, err := fmt.Fprintf(w, `Configuration initialized at %s

Edit this file to configure:
  - bridge.addr: where the relay page connects
  - explorer.url: block explorer used for balances
  - wallet.store: file, keyring or memory
  - wallet.ledger_path: Ledger derivation path
`, path)
	return err
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	return formatter.Render(cfg, func(w io.Writer) error {
		return yaml.NewEncoder(w).Encode(cfg)
	})
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	node, err := configNode(cfg, args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), node.Value)
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path, value := args[0], args[1]
	file := configFile()

	current, err := config.Load(file)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		current = config.Defaults()
		current.Home = cfg.Home
	}

	updated, err := setConfigValue(current, path, value)
	if err != nil {
		return err
	}
	if err := config.Validate(updated); err != nil {
		return err
	}
	if err := config.Save(updated, file); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", path, value)
	return err
}

// configNode resolves a dot path against the YAML form of c. Only scalar
// leaves can be addressed.
func configNode(c *config.Config, path string) (*yaml.Node, error) {
	var doc yaml.Node
	if err := doc.Encode(c); err != nil {
		return nil, err
	}
	return lookupNode(&doc, path)
}

func lookupNode(root *yaml.Node, path string) (*yaml.Node, error) {
	node := root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}

	for _, key := range strings.Split(path, ".") {
		next := mappingValue(node, key)
		if next == nil {
			return nil, unknownConfigKey(path)
		}
		node = next
	}
	if node.Kind != yaml.ScalarNode {
		return nil, unknownConfigKey(path)
	}
	return node, nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// setConfigValue returns a copy of c with the scalar at path replaced.
func setConfigValue(c *config.Config, path, value string) (*config.Config, error) {
	var doc yaml.Node
	if err := doc.Encode(c); err != nil {
		return nil, err
	}
	node, err := lookupNode(&doc, path)
	if err != nil {
		return nil, err
	}
	node.Value = value
	node.Style = 0

	updated := config.Defaults()
	if err := doc.Decode(updated); err != nil {
		return nil, linkerr.WithDetails(linkerr.WithCause(linkerr.ErrConfigInvalid, err),
			map[string]string{"path": path, "value": value})
	}
	return updated, nil
}

func unknownConfigKey(path string) error {
	return linkerr.WithSuggestion(
		linkerr.WithDetails(linkerr.ErrNotFound, map[string]string{"path": path}),
		"run 'btclink config show' to list the available keys",
	)
}
