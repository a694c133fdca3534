package main

import (
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/cooprules/internal/client"
	"github.com/alfredjeanlab/cooprules/internal/ui"
)

var (
	httpURL    string
	authToken  string
	jsonOutput bool
	actor      string

	rulesClient client.RulesClient
)

func defaultActor() string {
	if s := os.Getenv("COOP_ACTOR"); s != "" {
		return s
	}
	out, err := exec.Command("git", "config", "user.name").Output()
	if err == nil {
		name := strings.TrimSpace(string(out))
		if name != "" {
			return name
		}
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

func defaultHTTPURL() string {
	if s := os.Getenv("COOP_HTTP_URL"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

var rootCmd = &cobra.Command{
	Use:          "coop <command>",
	Short:        "Business rules and configuration engine for the cooperative",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.Init()
		rulesClient = client.NewHTTPClient(httpURL, authToken)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rulesClient != nil {
			rulesClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "rules engine HTTP URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("COOP_AUTH_TOKEN"), "bearer token for the rules engine")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", defaultActor(), "actor name recorded on config changes")

	rootCmd.AddGroup(
		&cobra.Group{ID: "config", Title: "Configuration:"},
		&cobra.Group{ID: "rules", Title: "Rules:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Configuration
	rootCmd.AddCommand(configCmd)

	// Rules
	rootCmd.AddCommand(eligibilityCmd)
	rootCmd.AddCommand(creditScoreCmd)
	rootCmd.AddCommand(penaltyCmd)
	rootCmd.AddCommand(interestCmd)
	rootCmd.AddCommand(scheduleCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
