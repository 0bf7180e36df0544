// Command ceridwen-admin is the operator CLI: it can seed a fresh
// installation's config.toml and index directories, and add and list
// crawl targets without hand-editing TOML.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/emilyselwood/ceridwen/internal/config"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ceridwen-admin",
		Short: "Administer a Ceridwen installation",
	}
	cmd.PersistentFlags().String("home", defaultHome(), "Ceridwen system root (overrides $CERIDWEN_HOME)")
	cmd.AddCommand(initCmd(), addTargetCmd(), listTargetsCmd())
	return cmd
}

func defaultHome() string {
	if override := os.Getenv("CERIDWEN_HOME"); override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ceridwen"
	}
	return filepath.Join(home, ".ceridwen")
}

func configPath(cmd *cobra.Command) (string, error) {
	root, err := cmd.Flags().GetString("home")
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "config.toml"), nil
}

// initCmd seeds a fresh config.toml (and the directories it references) if
// none exists yet, matching the original's separate init binary.
func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration if one doesn't already exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create system root: %w", err)
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("init config: %w", err)
			}
			fmt.Printf("configuration ready at %s (%d targets)\n", path, len(cfg.Targets))
			return nil
		},
	}
}

func addTargetCmd() *cobra.Command {
	var (
		name, ingesterType, baseURL string
		interval                    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "add-target",
		Short: "Add a new crawl target to the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.FindTarget(name) != nil {
				return fmt.Errorf("target %q already exists", name)
			}
			cfg.Targets = append(cfg.Targets, config.Ingester{
				Name:           name,
				IngesterType:   ingesterType,
				UpdateInterval: interval,
				BaseURL:        baseURL,
				Options:        map[string]string{},
			})
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid target: %w", err)
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Printf("added target %q (%s)\n", name, ingesterType)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "target name (required)")
	cmd.Flags().StringVar(&ingesterType, "type", "rss", "ingester type: rss, wikipedia, spider")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "feed or site URL")
	cmd.Flags().DurationVar(&interval, "interval", 24*time.Hour, "update interval")
	cmd.MarkFlagRequired("name")
	return cmd
}

func listTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-targets",
		Short: "List configured crawl targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			for _, target := range cfg.Targets {
				fmt.Printf("%-20s %-10s interval=%-12s last_update=%s\n",
					target.Name, target.IngesterType, target.UpdateInterval, target.LastUpdate.Format(time.RFC3339))
			}
			return nil
		},
	}
}
