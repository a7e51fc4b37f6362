package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileOverlay is the shape of the optional YAML configuration file.
type fileOverlay struct {
	Databases []DatabaseConfig `yaml:"databases"`
	Admin     *AdminConfig     `yaml:"admin"`
	Catalog   struct {
		Target string `yaml:"target"`
		Table  string `yaml:"table"`
	} `yaml:"catalog"`
	QueryTarget string `yaml:"query_target"`
}

// applyFile merges the YAML file at path into c. Databases with the name of
// an existing target replace it; others are appended.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return c.applyYAML(data)
}

func (c *Config) applyYAML(data []byte) error {
	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	for _, db := range overlay.Databases {
		if db.MaxOpenConns == 0 {
			db.MaxOpenConns = 10
		}
		if db.MaxIdleConns == 0 {
			db.MaxIdleConns = 2
		}
		replaced := false
		for i := range c.Databases {
			if c.Databases[i].Name == db.Name {
				c.Databases[i] = db
				replaced = true
				break
			}
		}
		if !replaced {
			c.Databases = append(c.Databases, db)
		}
	}

	if overlay.Admin != nil {
		if len(overlay.Admin.Users) > 0 {
			c.Admin.Users = overlay.Admin.Users
		}
		if len(overlay.Admin.Groups) > 0 {
			c.Admin.Groups = overlay.Admin.Groups
		}
	}
	if overlay.Catalog.Target != "" {
		c.Catalog.Target = overlay.Catalog.Target
	}
	if overlay.Catalog.Table != "" {
		c.Catalog.Table = overlay.Catalog.Table
	}
	if overlay.QueryTarget != "" {
		c.Query.Target = overlay.QueryTarget
	}
	return nil
}
