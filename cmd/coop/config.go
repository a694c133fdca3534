package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/cooprules/internal/config"
	"github.com/alfredjeanlab/cooprules/internal/configstore"
	"github.com/alfredjeanlab/cooprules/internal/events"
	"github.com/alfredjeanlab/cooprules/internal/model"
	"github.com/alfredjeanlab/cooprules/internal/store/postgres"
	coopsync "github.com/alfredjeanlab/cooprules/internal/sync"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Read and change business-rule configuration",
	GroupID: "config",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show a config entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := rulesClient.GetConfig(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), entry)
		}
		printConfigEntry(cmd.OutOrStdout(), entry)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a config value",
	Long: `Change a config value. The value is validated against the key's type,
bounds and pattern; JSON keys take a JSON document.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := rulesClient.SetConfig(cmd.Context(), args[0], args[1], actor)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), entry)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", entry.Key, entry.Value)
		if entry.RequiresRestart {
			fmt.Fprintln(cmd.OutOrStdout(), "Note: this setting takes effect after a restart.")
		}
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list [category]",
	Short: "List config entries, optionally for one category",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category := ""
		if len(args) > 0 {
			category = args[0]
		}
		entries, err := rulesClient.ListConfigs(cmd.Context(), category)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No configs found.")
			return nil
		}
		printConfigTable(cmd.OutOrStdout(), entries)
		return nil
	},
}

var configHistoryCmd = &cobra.Command{
	Use:   "history <key>",
	Short: "Show the change history of a config key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		changes, err := rulesClient.ConfigHistory(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), changes)
		}
		if len(changes) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No changes recorded for %s.\n", args[0])
			return nil
		}
		printHistoryTable(cmd.OutOrStdout(), changes)
		return nil
	},
}

var configExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a JSONL snapshot of every config entry to stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		src := coopsync.SourceFunc(func(ctx context.Context) ([]*model.ConfigEntry, error) {
			return rulesClient.ListConfigs(ctx, "")
		})
		return coopsync.ExportJSONL(cmd.Context(), src, cmd.OutOrStdout())
	},
}

var configSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert missing config entries directly into the database",
	Long: `Insert config entries that do not exist yet. Existing entries are never
overwritten. Without --file the built-in defaults are seeded. Connects to
COOP_DATABASE_URL directly rather than through the server.`,
	Args: cobra.NoArgs,
	// Talks to the database, not the HTTP server.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		entries, err := loadSeed(file)
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		schema, err := postgres.SchemaByName(cfg.Schema)
		if err != nil {
			return err
		}
		db, err := postgres.New(cfg.DatabaseURL, postgres.WithSchema(schema))
		if err != nil {
			return err
		}
		defer db.Close()

		publisher, err := newPublisher(cfg, slog.Default())
		if err != nil {
			return err
		}
		defer publisher.Close()

		store := configstore.New(db, configstore.WithPublisher(publisher))
		inserted, err := store.Seed(cmd.Context(), entries, actor)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{"inserted": inserted})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d new of %d defined config entries.\n", len(inserted), len(entries))
		for _, key := range inserted {
			fmt.Fprintf(cmd.OutOrStdout(), "  + %s\n", key)
		}
		return nil
	},
}

// loadSeed reads seed entries from a TOML file, or the built-in defaults
// when path is empty.
func loadSeed(path string) ([]*model.ConfigEntry, error) {
	if path == "" {
		return configstore.Defaults()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	entries, err := configstore.ParseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// newPublisher connects to NATS when configured and otherwise returns a no-op publisher.
func newPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		logger.Info("config events disabled (COOP_NATS_URL not set)")
		return &events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	logger.Info("config events enabled", "nats_url", cfg.NATSURL)
	return pub, nil
}

func init() {
	configHistoryCmd.Flags().Int("limit", 0, "maximum number of changes (default 50)")
	configSeedCmd.Flags().String("file", "", "TOML file of [[entry]] tables (default: built-in defaults)")

	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configHistoryCmd)
	configCmd.AddCommand(configExportCmd)
	configCmd.AddCommand(configSeedCmd)
}
