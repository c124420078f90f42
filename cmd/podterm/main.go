package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"podterm/internal/config"
	"podterm/internal/controller"
	"podterm/internal/db"
	"podterm/internal/feed"
	"podterm/internal/models"
	"podterm/internal/msg"
	"podterm/internal/opml"
	"podterm/internal/ui"
	"podterm/internal/worker"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "podterm",
		Short:        "A terminal podcast manager",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	root.AddCommand(importCmd(&configPath), exportCmd(&configPath))
	return root
}

// setup loads the config and opens the database. The database and log
// live next to the config file so an alternate -c path carries its own
// data directory.
func setup(configPath string) (*config.Config, *db.Database, error) {
	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to locate config dir: %w", err)
		}
		configPath = p
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	dataDir := filepath.Dir(configPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	// Log to a file; the TUI owns the terminal.
	logPath := filepath.Join(dataDir, "podterm.log")
	if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
		log.SetOutput(f)
	}

	database, err := db.Connect(dataDir)
	if err != nil {
		return nil, nil, err
	}
	return cfg, database, nil
}

func run(configPath string) error {
	cfg, database, err := setup(configPath)
	if err != nil {
		return err
	}
	defer database.Close()

	pool := worker.NewPool(cfg.SimultaneousDownloads)
	defer pool.Stop()

	ctrl, err := controller.New(cfg, database, pool)
	if err != nil {
		return err
	}
	go ctrl.Run()

	app := ui.New(ctrl.Podcasts(), ctrl.Mailbox(), ctrl.UIMessages())
	return app.Run()
}

func importCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import subscriptions from an OPML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, database, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer database.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open opml file: %w", err)
			}
			feeds, err := opml.Parse(f)
			f.Close()
			if err != nil {
				return err
			}

			existing, err := database.GetPodcasts()
			if err != nil {
				return err
			}
			known := make(map[string]bool, len(existing))
			for _, p := range existing {
				known[p.URL] = true
			}
			var pending []models.PodcastFeed
			for _, fd := range feeds {
				if !known[fd.URL] {
					pending = append(pending, models.PodcastFeed{URL: fd.URL, Title: fd.Title})
				}
			}
			if len(pending) == 0 {
				fmt.Println("No new feeds to import.")
				return nil
			}

			pool := worker.NewPool(cfg.SimultaneousDownloads)
			defer pool.Stop()

			results := make(chan msg.Message, len(pending))
			for _, fd := range pending {
				feed.CheckFeed(fd, cfg.MaxRetries, pool, results)
			}

			imported, failed := 0, 0
			for range pending {
				switch m := (<-results).(type) {
				case msg.FeedNewData:
					if _, err := database.InsertPodcast(m.Podcast); err != nil {
						fmt.Fprintf(os.Stderr, "Error adding %s: %v\n", m.Podcast.Title, err)
						failed++
					} else {
						fmt.Printf("Added %s\n", m.Podcast.Title)
						imported++
					}
				case msg.FeedError:
					fmt.Fprintf(os.Stderr, "Error fetching %s\n", m.Feed.URL)
					failed++
				}
			}
			fmt.Printf("Imported %d feeds, %d failed.\n", imported, failed)
			return nil
		},
	}
}

func exportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Export subscriptions to an OPML file (- for stdout)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, database, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer database.Close()

			podcasts, err := database.GetPodcasts()
			if err != nil {
				return err
			}
			feeds := make([]opml.Feed, 0, len(podcasts))
			for _, p := range podcasts {
				feeds = append(feeds, opml.Feed{Title: p.Title, URL: p.URL})
			}

			out := os.Stdout
			if args[0] != "-" {
				out, err = os.Create(args[0])
				if err != nil {
					return fmt.Errorf("failed to create opml file: %w", err)
				}
				defer out.Close()
			}
			return opml.Export(out, feeds)
		},
	}
}
