package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/cloudscope/cloudscope/internal/aws"
	"github.com/cloudscope/cloudscope/internal/store"
	"github.com/cloudscope/cloudscope/types"
)

var (
	scanProfile  string
	scanOutput   string
	scanCategory string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Inventory AWS resources for a profile",
	Long: `Scan runs a one-shot inventory aggregation against AWS and prints
the result, bypassing the API server and its cache.

The active profile is scanned unless --profile names another stored
one. Services that fail to answer are reported as empty rather than
aborting the scan.`,
	Example: `  cloudscope scan                       # Active profile, all categories
  cloudscope scan --profile staging     # A specific stored profile
  cloudscope scan --category compute    # One category only
  cloudscope scan --output json         # Machine-readable output`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanProfile, "profile", "p", "", "Stored profile name (default: the active profile)")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "table", "Output format: table, json")
	scanCmd.Flags().StringVarP(&scanCategory, "category", "c", "", "Limit the scan to one category")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanOutput != "table" && scanOutput != "json" {
		return fmt.Errorf("invalid output format: %s (must be table or json)", scanOutput)
	}
	if scanCategory != "" && types.CategoryLabels(types.Category(scanCategory)) == nil {
		return fmt.Errorf("unknown category: %s (must be one of: %s)", scanCategory, categoryNames())
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	profileStore, err := store.NewProfileStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() { _ = profileStore.Close() }()
	if err := profileStore.Init(ctx); err != nil {
		return err
	}

	profile, err := scanTarget(ctx, profileStore)
	if err != nil {
		return err
	}

	provider, err := aws.New(ctx, profile, cliLogger(), cfg.AWS.ScanWorkers)
	if err != nil {
		return err
	}

	var spinner *pterm.SpinnerPrinter
	if scanOutput == "table" {
		spinner, _ = pterm.DefaultSpinner.Start(
			fmt.Sprintf("Scanning %s (%s)...", profile.DisplayName(), profile.Region))
	}

	var collection types.ResourceCollection
	if scanCategory != "" {
		collection, err = provider.AggregateCategory(ctx, types.Category(scanCategory))
	} else {
		collection, err = provider.Aggregate(ctx)
	}
	if err != nil {
		if spinner != nil {
			spinner.Fail("scan failed")
		}
		return err
	}
	if spinner != nil {
		spinner.Success(fmt.Sprintf("Found %d resources in %s", collection.Total(), profile.DisplayName()))
	}

	if scanOutput == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(collection)
	}

	renderCollection(collection)
	return nil
}

// scanTarget picks the profile to scan: the named one, or the active one.
func scanTarget(ctx context.Context, profileStore *store.ProfileStore) (*types.Profile, error) {
	if scanProfile != "" {
		return profileStore.GetByName(ctx, scanProfile)
	}
	active, err := profileStore.Active(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, fmt.Errorf("no active profile; import one with 'cloudscope profiles import' or use --profile")
	}
	return active, nil
}

// renderCollection prints the collection grouped by category, one table
// per resource label. Labels absent from a partial view are skipped.
func renderCollection(collection types.ResourceCollection) {
	for _, category := range types.Categories() {
		labels := types.CategoryLabels(category)

		present := false
		for _, label := range labels {
			if _, ok := collection[label]; ok {
				present = true
				break
			}
		}
		if !present {
			continue
		}

		pterm.DefaultSection.Println(strings.ToUpper(string(category)))
		for _, label := range labels {
			records, ok := collection[label]
			if !ok {
				continue
			}
			renderTable(label, records)
		}
	}
}

func renderTable(label string, records []types.ResourceRecord) {
	fmt.Println(color.New(color.FgCyan, color.Bold).Sprintf("%s (%d)", label, len(records)))
	if len(records) == 0 {
		color.New(color.Faint).Println("  none")
		fmt.Println()
		return
	}

	columns := recordColumns(records)
	data := pterm.TableData{columns}
	for _, record := range records {
		row := make([]string, len(columns))
		for i, column := range columns {
			row[i] = cell(record[column])
		}
		data = append(data, row)
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	fmt.Println()
}

// recordColumns derives a stable column order: Name first, the rest
// alphabetical, unioned across records.
func recordColumns(records []types.ResourceRecord) []string {
	seen := map[string]bool{}
	var columns []string
	for _, record := range records {
		for key := range record {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	sort.Strings(columns)

	for i, column := range columns {
		if column == "Name" && i != 0 {
			copy(columns[1:i+1], columns[:i])
			columns[0] = "Name"
			break
		}
	}
	return columns
}

func cell(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func categoryNames() string {
	categories := types.Categories()
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
