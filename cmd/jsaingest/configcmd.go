package main

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsaops/jsaingest/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(configFilePath())
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		for _, key := range sortedConfigKeys() {
			value := configKeys[key](cfg)
			if key == "catalog.dsn" {
				value = maskDSN(value)
			}
			fmt.Printf("%s: %s\n", key, value)
		}
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		get, ok := configKeys[args[0]]
		if !ok {
			return fmt.Errorf("unknown key %q (valid: %s)", args[0], strings.Join(sortedConfigKeys(), ", "))
		}
		fmt.Println(get(cfg))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if _, ok := configKeys[key]; !ok {
			return fmt.Errorf("unknown key %q (valid: %s)", key, strings.Join(sortedConfigKeys(), ", "))
		}
		if key == "ingest.collection" && !config.ValidCollection(value) {
			return fmt.Errorf("invalid collection %q (valid: %s)", value, strings.Join(config.Collections, ", "))
		}
		if err := config.SetKey(configFilePath(), key, value); err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configPathCmd, configShowCmd, configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// configKeys maps the dotted key names to their values in the loaded
// configuration. `config set` accepts exactly these keys.
var configKeys = map[string]func(*config.Config) string{
	"catalog.dsn":             func(c *config.Config) string { return c.Catalog.DSN },
	"catalog.caom_database":   func(c *config.Config) string { return c.Catalog.CAOMDatabase },
	"catalog.jcmt_database":   func(c *config.Config) string { return c.Catalog.JCMTDatabase },
	"catalog.omp_database":    func(c *config.Config) string { return c.Catalog.OMPDatabase },
	"repository.service_url":  func(c *config.Config) string { return c.Repository.ServiceURL },
	"repository.file_root":    func(c *config.Config) string { return c.Repository.FileRoot },
	"ingest.collection":       func(c *config.Config) string { return c.Ingest.Collection },
	"ingest.workdir":          func(c *config.Config) string { return c.Ingest.Workdir },
	"ingest.log_dir":          func(c *config.Config) string { return c.Ingest.LogDir },
	"ingest.runid_alias_file": func(c *config.Config) string { return c.Ingest.RunIDAliasFile },
}

func sortedConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var dsnPasswordPattern = regexp.MustCompile(`^([^:@/]+):[^@]+@`)

// maskDSN hides the password portion of a MySQL DSN.
func maskDSN(dsn string) string {
	return dsnPasswordPattern.ReplaceAllString(dsn, "$1:***@")
}
