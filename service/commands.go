package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"bridgeus/app/config"
	"bridgeus/app/logging"
	"bridgeus/app/models"
	"bridgeus/app/repositories"
	"bridgeus/app/services"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the bridgeus command tree.
func NewRootCommand() *cobra.Command {
	var configPath string
	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		return cfg, nil
	}

	root := &cobra.Command{
		Use:           "bridgeus",
		Short:         "BridgeUS community feed service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")

	root.AddCommand(
		newServeCommand(loadConfig),
		newFeedCommand(loadConfig),
		newStoreCommand(loadConfig),
		newConfigCommand(loadConfig),
		newVersionCommand(),
	)
	return root
}

func newServeCommand(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the feed HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return RunServer(ctx, cfg, newLogger(cfg.Log, cmd.ErrOrStderr()))
		},
	}
}

func newFeedCommand(loadConfig func() (*config.Config, error)) *cobra.Command {
	var (
		category string
		sortMode string
		pages    int
	)
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Print the first pages of a feed as an infinite-scroll reader sees them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return previewFeed(cmd.Context(), cmd.OutOrStdout(), cfg, category, models.ParseSortMode(sortMode), pages)
		},
	}
	cmd.Flags().StringVar(&category, "category", models.AllCategories, "category selector")
	cmd.Flags().StringVar(&sortMode, "sort", string(models.SortNewest), "newest, helpful or accuracy")
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	return cmd
}

// previewFeed opens a session, scrolls until pages pages are visible without
// the simulated delay and prints the window.
func previewFeed(ctx context.Context, out io.Writer, cfg *config.Config, category string, mode models.SortMode, pages int) error {
	st, err := openStores(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := feedOptions(cfg.Feed)
	opts.LoadDelay = 0
	feed, err := newFeed(ctx, opts, st.posts, logging.Discard())
	if err != nil {
		return err
	}

	session, err := services.NewFeedSession(ctx, "cli", feed, category, mode)
	if err != nil {
		return err
	}
	defer session.Close()

	// A load either extends the window or grows the store, so reaching a
	// page can take two loads.
	var snap services.Snapshot
	for attempt := 0; ; attempt++ {
		snap, err = session.Snapshot(ctx)
		if err != nil {
			return err
		}
		if len(snap.Posts) >= pages*opts.PageSize || attempt >= 2*pages || !session.LoadMore() {
			break
		}
		if err := session.Wait(ctx); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tACCURACY\tHELPFUL\tREPLIES\tPOSTED\tTITLE")
	for _, p := range snap.Posts {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\n", p.ID, p.AccuracyScore, p.HelpfulCount, p.ReplyCount, p.Timestamp, p.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nshowing %d of %d posts (category=%s, sort=%s, has more: %t)\n",
		len(snap.Posts), snap.Total, snap.Category, snap.Sort, snap.HasMore)
	return nil
}

func newStoreCommand(loadConfig func() (*config.Config, error)) *cobra.Command {
	var yes bool
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the badger post store",
	}
	storeCmd.PersistentFlags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	storeCmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Initialize a new database with the seed posts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				return initDb(cmd.Context(), cmd.OutOrStdout(), cfg.Store.Path)
			},
		},
		&cobra.Command{
			Use:   "clean",
			Short: "Remove the database",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				return clean(cmd.OutOrStdout(), confirmer(cmd, yes), cfg.Store.Path)
			},
		},
		&cobra.Command{
			Use:   "backup [dir]",
			Short: "Create a backup of the database (default dir data/backups)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				dir := filepath.Join("data", "backups")
				if len(args) == 1 {
					dir = args[0]
				}
				_, err = backup(cmd.OutOrStdout(), cfg.Store.Path, dir)
				return err
			},
		},
		&cobra.Command{
			Use:   "restore <file>",
			Short: "Restore the database from a backup",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				return restore(cmd.OutOrStdout(), confirmer(cmd, yes), cfg.Store.Path, args[0])
			},
		},
	)
	return storeCmd
}

func newConfigCommand(loadConfig func() (*config.Config, error)) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return config.Write(cmd.OutOrStdout(), cfg)
		},
	})
	return configCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bridgeus version %s\n", Version)
		},
	}
}

// confirmer asks a yes/no question on the command's stdin unless skip is set.
func confirmer(cmd *cobra.Command, skip bool) func(question string) bool {
	return func(question string) bool {
		if skip {
			return true
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
		line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		answer := strings.TrimSpace(line)
		return answer == "y" || answer == "Y"
	}
}

// clean removes the database.
func clean(out io.Writer, confirm func(string) bool, dbPath string) error {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintln(out, "Database is already clean (does not exist)")
		return nil
	}

	if !confirm("Are you sure you want to clean the database? This cannot be undone.") {
		fmt.Fprintln(out, "Operation cancelled")
		return nil
	}

	if err := os.RemoveAll(dbPath); err != nil {
		return fmt.Errorf("failed to clean database: %w", err)
	}
	fmt.Fprintln(out, "Database cleaned successfully")
	return nil
}

// initDb creates a database and appends the seed posts.
func initDb(ctx context.Context, out io.Writer, dbPath string) error {
	if _, err := os.Stat(dbPath); err == nil {
		fmt.Fprintln(out, "Database already exists. Use 'clean' first if you want to reinitialize.")
		return nil
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := repositories.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	feed, err := newFeed(ctx, services.DefaultFeedOptions(), repositories.NewBadgerPostStore(db), logging.Discard())
	if err != nil {
		return err
	}
	n, err := feed.ListPosts(ctx, models.AllCategories, models.SortNewest, 1, 1)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Database initialized successfully with %d posts\n", n.Pagination.Total)
	return nil
}

// backup writes a full badger backup into dir and returns the file name.
func backup(out io.Writer, dbPath, dir string) (string, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintln(out, "No database exists to backup")
		return "", nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	db, err := repositories.Open(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	backupFile := filepath.Join(dir, fmt.Sprintf("backup_%d.db", time.Now().UnixNano()))
	f, err := os.Create(backupFile)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	if _, err := db.Backup(f, 0); err != nil {
		return "", fmt.Errorf("failed to backup database: %w", err)
	}

	fmt.Fprintf(out, "Database backed up successfully to %s\n", backupFile)
	return backupFile, nil
}

// restore replaces the database with the contents of a backup.
func restore(out io.Writer, confirm func(string) bool, dbPath, backupFile string) (err error) {
	fi, err := os.Stat(backupFile)
	if os.IsNotExist(err) {
		return fmt.Errorf("backup file does not exist: %s", backupFile)
	}
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		return fmt.Errorf("backup file is empty: %s", backupFile)
	}

	if _, err := os.Stat(dbPath); err == nil {
		if !confirm("Existing database found. Do you want to replace it?") {
			fmt.Fprintln(out, "Operation cancelled")
			return nil
		}
		if err := os.RemoveAll(dbPath); err != nil {
			return fmt.Errorf("failed to remove existing database: %w", err)
		}
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := repositories.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	f, err := os.Open(backupFile)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred during restore: %v", r)
		}
	}()
	if err := db.Load(f, 4); err != nil {
		return fmt.Errorf("failed to restore database: %w", err)
	}

	fmt.Fprintln(out, "Database restored successfully")
	return nil
}
