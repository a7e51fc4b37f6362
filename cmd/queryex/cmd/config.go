package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	configAPIVersion = "queryex/v1"
	configKind       = "Config"
)

// Config is the on-disk CLI configuration, ~/.queryex/config.yaml.
type Config struct {
	APIVersion     string         `yaml:"apiVersion"`
	Kind           string         `yaml:"kind"`
	CurrentContext string         `yaml:"current-context"`
	Contexts       []NamedContext `yaml:"contexts"`
}

// NamedContext is one server the CLI can talk to.
type NamedContext struct {
	Name    string        `yaml:"name"`
	Context ContextDetail `yaml:"context"`
}

// ContextDetail holds the connection settings of a context. Token and
// TokenFile are used in bearer mode, User in trusted-header mode.
type ContextDetail struct {
	APIURL    string `yaml:"api-url"`
	Token     string `yaml:"token,omitempty"`
	TokenFile string `yaml:"token-file,omitempty"`
	User      string `yaml:"user,omitempty"`
}

// configDirOverride redirects the config directory in tests.
var configDirOverride string

func configDir() string {
	if configDirOverride != "" {
		return configDirOverride
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".queryex")
}

func configPath() string { return filepath.Join(configDir(), "config.yaml") }

func expandPath(p string) string {
	rest, ok := strings.CutPrefix(p, "~/")
	if !ok {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, rest)
}

func loadConfig() (*Config, error) {
	raw, err := os.ReadFile(configPath())
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath(), err)
	}
	return cfg, nil
}

// saveConfig writes cfg with owner-only permissions since it may hold tokens.
func saveConfig(cfg *Config) error {
	cfg.APIVersion, cfg.Kind = configAPIVersion, configKind

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir(), 0o700); err != nil {
		return err
	}
	return os.WriteFile(configPath(), raw, 0o600)
}

// updateConfig loads the config, starting empty when the file does not exist
// yet, applies fn and saves the result.
func updateConfig(fn func(*Config) error) error {
	cfg, err := loadConfig()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = &Config{}
	case err != nil:
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func (c *Config) index(name string) int {
	return slices.IndexFunc(c.Contexts, func(nc NamedContext) bool { return nc.Name == name })
}

// GetContext returns the named context or nil.
func (c *Config) GetContext(name string) *NamedContext {
	if i := c.index(name); i >= 0 {
		return &c.Contexts[i]
	}
	return nil
}

// SetContext replaces the named context or appends it.
func (c *Config) SetContext(name string, detail ContextDetail) {
	if i := c.index(name); i >= 0 {
		c.Contexts[i].Context = detail
		return
	}
	c.Contexts = append(c.Contexts, NamedContext{Name: name, Context: detail})
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage server contexts",
}

var setContextCmd = &cobra.Command{
	Use:   "set-context NAME",
	Short: "Create or update a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		var detail ContextDetail
		detail.APIURL, _ = cmd.Flags().GetString("api-url")
		detail.Token, _ = cmd.Flags().GetString("token")
		detail.TokenFile, _ = cmd.Flags().GetString("token-file")
		detail.User, _ = cmd.Flags().GetString("user")
		if detail.APIURL == "" {
			return errors.New("--api-url is required")
		}

		var current string
		err := updateConfig(func(cfg *Config) error {
			cfg.SetContext(name, detail)
			if cfg.CurrentContext == "" {
				cfg.CurrentContext = name
			}
			current = cfg.CurrentContext
			return nil
		})
		if err != nil {
			return err
		}

		fmt.Printf("Context %q set.\n", name)
		if current == name {
			fmt.Printf("Current context is %q.\n", name)
		}
		return nil
	},
}

var useContextCmd = &cobra.Command{
	Use:   "use-context NAME",
	Short: "Make NAME the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := updateConfig(func(cfg *Config) error {
			if cfg.GetContext(args[0]) == nil {
				return fmt.Errorf("context %q not found", args[0])
			}
			cfg.CurrentContext = args[0]
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Printf("Switched to context %q.\n", args[0])
		return nil
	},
}

var getContextsCmd = &cobra.Command{
	Use:   "get-contexts",
	Short: "List configured contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("no config found: %w", err)
		}

		switch flagOutput {
		case outputJSON:
			printJSON(cfg.Contexts)
		case outputYAML:
			printYAML(cfg.Contexts)
		default:
			t := newTable("CURRENT", "NAME", "API-URL", "AUTH")
			for _, c := range cfg.Contexts {
				marker := ""
				if c.Name == cfg.CurrentContext {
					marker = "*"
				}
				t.AddRow(marker, c.Name, c.Context.APIURL, authKind(c.Context))
			}
			t.Flush()
		}
		return nil
	},
}

var currentContextCmd = &cobra.Command{
	Use:   "current-context",
	Short: "Print the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("no config found: %w", err)
		}
		if cfg.CurrentContext == "" {
			fmt.Fprintln(os.Stderr, "No current context set.")
			return nil
		}
		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

var viewConfigCmd = &cobra.Command{
	Use:   "view",
	Short: "Print the whole configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("no config found: %w", err)
		}
		if flagOutput == outputJSON {
			printJSON(cfg)
		} else {
			printYAML(cfg)
		}
		return nil
	},
}

func init() {
	f := setContextCmd.Flags()
	f.String("api-url", "", "Server base URL")
	f.String("token", "", "Bearer token")
	f.String("token-file", "", "File holding the bearer token")
	f.String("user", "", "Username for the X-Remote-User header")

	configCmd.AddCommand(setContextCmd, useContextCmd, getContextsCmd, currentContextCmd, viewConfigCmd)
}

// authKind summarizes how a context authenticates, for the AUTH column.
func authKind(c ContextDetail) string {
	if c.Token != "" || c.TokenFile != "" {
		return "token"
	}
	if c.User != "" {
		return "user:" + c.User
	}
	return "-"
}
