package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"osrs-flipper/internal/config"
	"osrs-flipper/internal/db"
	"osrs-flipper/internal/engine"
	"osrs-flipper/internal/logger"
	"osrs-flipper/internal/osrs"
	"osrs-flipper/internal/store"
)

var version = "dev"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "osrs-flipper",
	Short:        "Grand Exchange flip screener",
	Long:         "Screens Old School RuneScape Grand Exchange prices for flipping opportunities:\nbuilds the item dataset, enriches it with volume and trend data, and filters it\nby margin, volume, recency and more.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c
		logger.Configure(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

// scan flags
var (
	scanForce   bool
	scanOffline bool
	scanVolumes bool
	scanTop     bool
	scanSave    bool

	flagBuyLimitMin  int
	flagBuyLimitMax  int
	flagBuyPriceMin  int
	flagBuyPriceMax  int
	flagSellPriceMin int
	flagSellPriceMax int
	flagMarginMin    int
	flagMarginMax    int
	flagMarginPctMin float64
	flagMarginPctMax float64
	flagVolume1hMin  int64
	flagVolume24hMin int64
	flagMembers      bool
	flagMaxHours     float64
	flagName         string
	flagExclude      []string
	flagSortBy       string
	flagSortAsc      bool
	flagLimit        int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Build the dataset, filter it and print the result table",
	Example: `  osrs-flipper scan --margin-min 50 --volume-1h-min 100 --sort margin_gp --limit 25
  osrs-flipper scan --top --name rune --exclude ore,bar
  osrs-flipper scan --offline --margin-pct-min 1.5`,
	RunE: runScan,
}

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Build the dataset and write it to a file",
	Long:  "Builds the dataset (live, or from the latest local snapshot with --offline),\noptionally enriches it, and writes it to csv, json, gob or xlsx.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Load a dataset from a file and print the result table",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List local price snapshots",
	RunE:  runSnapshots,
}

var (
	exportFormat   string
	importFormat   string
	snapshotsLimit int
)

func init() {
	rootCmd.AddCommand(scanCmd, exportCmd, importCmd, snapshotsCmd)

	scanCmd.Flags().BoolVar(&scanForce, "force", false, "Rebuild even if data is already loaded")
	scanCmd.Flags().BoolVar(&scanOffline, "offline", false, "Restore the latest local snapshot instead of fetching")
	scanCmd.Flags().BoolVar(&scanVolumes, "volumes", true, "Enrich with volume and trend data")
	scanCmd.Flags().BoolVar(&scanTop, "top", false, "Enrich the highest-margin candidates instead of the first items")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "Persist the build as a local snapshot")
	addFilterFlags(scanCmd)

	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, gob or xlsx")
	exportCmd.Flags().BoolVar(&scanOffline, "offline", false, "Restore the latest local snapshot instead of fetching")
	exportCmd.Flags().BoolVar(&scanVolumes, "volumes", true, "Enrich with volume and trend data")
	exportCmd.Flags().BoolVar(&scanTop, "top", false, "Enrich the highest-margin candidates instead of the first items")
	addFilterFlags(exportCmd)

	importCmd.Flags().StringVar(&importFormat, "format", "csv", "Input format: csv, json or gob")
	addFilterFlags(importCmd)

	snapshotsCmd.Flags().IntVar(&snapshotsLimit, "limit", 20, "Number of snapshots to list")
}

func addFilterFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&flagBuyLimitMin, "buy-limit-min", 0, "Minimum buy limit")
	f.IntVar(&flagBuyLimitMax, "buy-limit-max", 0, "Maximum buy limit")
	f.IntVar(&flagBuyPriceMin, "buy-price-min", 0, "Minimum instant-buy price")
	f.IntVar(&flagBuyPriceMax, "buy-price-max", 0, "Maximum instant-buy price")
	f.IntVar(&flagSellPriceMin, "sell-price-min", 0, "Minimum instant-sell price")
	f.IntVar(&flagSellPriceMax, "sell-price-max", 0, "Maximum instant-sell price")
	f.IntVar(&flagMarginMin, "margin-min", 0, "Minimum margin in gp")
	f.IntVar(&flagMarginMax, "margin-max", 0, "Maximum margin in gp")
	f.Float64Var(&flagMarginPctMin, "margin-pct-min", 0, "Minimum margin percentage")
	f.Float64Var(&flagMarginPctMax, "margin-pct-max", 0, "Maximum margin percentage")
	f.Int64Var(&flagVolume1hMin, "volume-1h-min", 0, "Minimum 1h volume, both sides")
	f.Int64Var(&flagVolume24hMin, "volume-24h-min", 0, "Minimum 24h volume, both sides")
	f.BoolVar(&flagMembers, "members", false, "Members items only (=false for free-to-play only)")
	f.Float64Var(&flagMaxHours, "max-hours", 0, "Only items traded within the last N hours")
	f.StringVar(&flagName, "name", "", "Name must contain this substring")
	f.StringSliceVar(&flagExclude, "exclude", nil, "Exclude items whose name contains any of these")
	f.StringVar(&flagSortBy, "sort", "", "Sort column, e.g. margin_gp, flip_efficiency")
	f.BoolVar(&flagSortAsc, "asc", false, "Sort ascending instead of descending")
	f.IntVar(&flagLimit, "limit", 0, "Keep only the first N rows after sorting (0 = all)")
}

// filterOptions fills in only the criteria whose flags were set, so an
// untouched flag stays a no-op instead of filtering at its zero value.
func filterOptions(cmd *cobra.Command) engine.FilterOptions {
	opts := engine.FilterOptions{
		SortBy:  flagSortBy,
		SortAsc: flagSortAsc,
		Limit:   flagLimit,
	}
	set := cmd.Flags().Changed
	if set("buy-limit-min") {
		opts.BuyLimitMin = &flagBuyLimitMin
	}
	if set("buy-limit-max") {
		opts.BuyLimitMax = &flagBuyLimitMax
	}
	if set("buy-price-min") {
		opts.BuyPriceMin = &flagBuyPriceMin
	}
	if set("buy-price-max") {
		opts.BuyPriceMax = &flagBuyPriceMax
	}
	if set("sell-price-min") {
		opts.SellPriceMin = &flagSellPriceMin
	}
	if set("sell-price-max") {
		opts.SellPriceMax = &flagSellPriceMax
	}
	if set("margin-min") {
		opts.MarginMin = &flagMarginMin
	}
	if set("margin-max") {
		opts.MarginMax = &flagMarginMax
	}
	if set("margin-pct-min") {
		opts.MarginPctMin = &flagMarginPctMin
	}
	if set("margin-pct-max") {
		opts.MarginPctMax = &flagMarginPctMax
	}
	if set("volume-1h-min") {
		opts.Volume1hMin = &flagVolume1hMin
	}
	if set("volume-24h-min") {
		opts.Volume24hMin = &flagVolume24hMin
	}
	if set("members") {
		opts.MembersOnly = &flagMembers
	}
	if set("max-hours") {
		opts.MaxHoursSinceUpdate = &flagMaxHours
	}
	if set("name") {
		opts.NameContains = &flagName
	}
	opts.ExcludeNames = flagExclude
	return opts
}

func newScreener() *engine.Screener {
	client := osrs.NewClient(cfg.BaseURL, cfg.UserAgent)
	return engine.NewScreener(client, client, cfg.RequestsPerSecond, cfg.EnrichWorkers)
}

// buildDataset loads the screener either live or from the latest local
// snapshot, and runs volume enrichment when asked to.
func buildDataset(ctx context.Context, force bool) (*engine.Screener, error) {
	s := newScreener()

	if scanOffline {
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		defer database.Close()

		items, snap, err := database.LoadLatest()
		if err != nil {
			return nil, err
		}
		if items == nil {
			return nil, fmt.Errorf("no local snapshots; run a scan with --save first")
		}
		logger.Info("MAIN", fmt.Sprintf("offline mode, using snapshot from %s",
			snap.CreatedAt.Format("2006-01-02 15:04")))
		s.SetItems(items)
		return s, nil
	}

	if err := s.Load(ctx, force); err != nil {
		return nil, err
	}
	if scanVolumes {
		var ids []int
		if scanTop {
			ids = s.TopCandidates(cfg.MaxEnrichItems)
		}
		if err := s.LoadVolumes(ctx, ids, cfg.MaxEnrichItems); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	s, err := buildDataset(cmd.Context(), scanForce)
	if err != nil {
		return err
	}

	if scanSave && !scanOffline {
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer database.Close()
		if _, err := database.SaveSnapshot(s.Items()); err != nil {
			return err
		}
	}

	s.Filter(filterOptions(cmd))
	fmt.Print(s.Table())
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	path := args[0]

	s, err := buildDataset(cmd.Context(), false)
	if err != nil {
		return err
	}
	items := s.Filter(filterOptions(cmd))

	if exportFormat == "xlsx" {
		return store.SaveXLSX(items, path)
	}
	format, err := store.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	return store.Save(items, path, format)
}

func runImport(cmd *cobra.Command, args []string) error {
	format, err := store.ParseFormat(importFormat)
	if err != nil {
		return err
	}
	items, err := store.Load(args[0], format)
	if err != nil {
		return err
	}

	s := newScreener()
	s.SetItems(items)
	s.Filter(filterOptions(cmd))
	fmt.Print(s.Table())
	return nil
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	list, err := database.Snapshots(snapshotsLimit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No snapshots yet. Run a scan with --save.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "id\tcreated\titems")
	for _, snap := range list {
		fmt.Fprintf(w, "%d\t%s\t%d\n", snap.ID, snap.CreatedAt.Format("2006-01-02 15:04:05"), snap.ItemCount)
	}
	return w.Flush()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("MAIN", err.Error())
		os.Exit(1)
	}
}
