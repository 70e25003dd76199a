package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jsaops/jsaingest/internal/config"
	"github.com/jsaops/jsaingest/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the configuration file interactively",
	Long: `Walk through the jsaingest configuration in an interactive form and
write it to the config file.

Existing values are used as defaults, so re-running init edits the
current configuration. Use --config to choose a different file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// configDoc is the YAML shape of the configuration file.
type configDoc struct {
	Catalog struct {
		DSN          string `yaml:"dsn,omitempty"`
		CAOMDatabase string `yaml:"caom_database,omitempty"`
		JCMTDatabase string `yaml:"jcmt_database,omitempty"`
		OMPDatabase  string `yaml:"omp_database,omitempty"`
	} `yaml:"catalog"`
	Repository struct {
		ServiceURL string `yaml:"service_url,omitempty"`
		FileRoot   string `yaml:"file_root,omitempty"`
	} `yaml:"repository"`
	Ingest struct {
		Collection     string `yaml:"collection"`
		Workdir        string `yaml:"workdir,omitempty"`
		LogDir         string `yaml:"log_dir,omitempty"`
		RunIDAliasFile string `yaml:"runid_alias_file,omitempty"`
	} `yaml:"ingest"`
}

func runInit() error {
	path := configFilePath()

	collection := cfg.Ingest.Collection
	dsn := cfg.Catalog.DSN
	repoMode := "service"
	if cfg.Repository.FileRoot != "" {
		repoMode = "files"
	}
	serviceURL := cfg.Repository.ServiceURL
	fileRoot := cfg.Repository.FileRoot
	workdir := cfg.Ingest.Workdir
	logdir := cfg.Ingest.LogDir
	confirmed := true

	collectionOptions := make([]huh.Option[string], 0, len(config.Collections))
	for _, c := range config.Collections {
		collectionOptions = append(collectionOptions, huh.NewOption(c, c))
	}

	confirmTitle := fmt.Sprintf("Write configuration to %s?", path)
	if _, err := os.Stat(path); err == nil {
		confirmTitle = fmt.Sprintf("Overwrite existing configuration at %s?", path)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Collection").
				Description("Archive collection ingestion runs target by default").
				Options(collectionOptions...).
				Value(&collection),

			huh.NewInput().
				Title("Catalog DSN").
				Description("MySQL connection for the archive metadata mirror").
				Placeholder("user:pass@tcp(mirror.example.org:3306)/?parseTime=true").
				Value(&dsn),

			huh.NewSelect[string]().
				Title("Observation repository").
				Description("Where assembled observation records are stored").
				Options(
					huh.NewOption("Web service (caom2repo)", "service"),
					huh.NewOption("Local files (offline/testing)", "files"),
				).
				Value(&repoMode),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Repository service URL").
				Placeholder("https://archive.example.org/caom2repo/obs").
				Value(&serviceURL).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a service URL is required")
					}
					return nil
				}),
		).WithHideFunc(func() bool { return repoMode != "service" }),

		huh.NewGroup(
			huh.NewInput().
				Title("Repository file root").
				Placeholder("/jsa/repository").
				Value(&fileRoot).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a file root is required")
					}
					return nil
				}),
		).WithHideFunc(func() bool { return repoMode != "files" }),

		huh.NewGroup(
			huh.NewInput().
				Title("Working directory").
				Description("Holds the single-writer ingestion lock").
				Placeholder(".").
				Value(&workdir),

			huh.NewInput().
				Title("Log directory").
				Description("Per-run log artifacts and reports (default: working directory)").
				Value(&logdir),

			huh.NewConfirm().
				Title(confirmTitle).
				Value(&confirmed),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("aborted, nothing written")
			return nil
		}
		return err
	}
	if !confirmed {
		fmt.Println("nothing written")
		return nil
	}

	var doc configDoc
	doc.Catalog.DSN = dsn
	doc.Catalog.CAOMDatabase = cfg.Catalog.CAOMDatabase
	doc.Catalog.JCMTDatabase = cfg.Catalog.JCMTDatabase
	doc.Catalog.OMPDatabase = cfg.Catalog.OMPDatabase
	if repoMode == "files" {
		doc.Repository.FileRoot = fileRoot
	} else {
		doc.Repository.ServiceURL = serviceURL
	}
	doc.Ingest.Collection = collection
	doc.Ingest.Workdir = workdir
	doc.Ingest.LogDir = logdir
	doc.Ingest.RunIDAliasFile = cfg.Ingest.RunIDAliasFile

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}

	fmt.Printf("%s wrote %s\n", ui.RenderPass(ui.IconPass), path)
	return nil
}
