package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/cloudscope/cloudscope/config"
	"github.com/cloudscope/cloudscope/internal/aws"
	"github.com/cloudscope/cloudscope/internal/profiles"
	"github.com/cloudscope/cloudscope/internal/store"
	"github.com/cloudscope/cloudscope/types"
)

var importRegion string

// profilesCmd groups the profile management subcommands
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage stored AWS profiles",
	Long: `Manage the stored AWS credential profiles the dashboard scans with.

Exactly one profile is active at a time; the API's resource endpoints
and a bare 'cloudscope scan' both read it.`,
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles",
	RunE:  runProfilesList,
}

var profilesActivateCmd = &cobra.Command{
	Use:   "activate <id|name>",
	Short: "Make a profile the active one",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesActivate,
}

var profilesDeleteCmd = &cobra.Command{
	Use:   "delete <id|name>",
	Short: "Delete a stored profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesDelete,
}

var profilesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a profile from an AWS credentials file",
	Long: `Import the first profile section of an AWS credentials file.

Reads from stdin when the file argument is '-'.`,
	Example: `  cloudscope profiles import ~/.aws/credentials
  cat creds.ini | cloudscope profiles import -
  cloudscope profiles import creds.ini --region eu-central-1`,
	Args: cobra.ExactArgs(1),
	RunE: runProfilesImport,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesActivateCmd)
	profilesCmd.AddCommand(profilesDeleteCmd)
	profilesCmd.AddCommand(profilesImportCmd)

	profilesImportCmd.Flags().StringVar(&importRegion, "region", "", "Region for sections that name none (default: config default_region)")
}

// openProfileStore loads configuration and opens the profile database.
func openProfileStore(ctx context.Context) (*config.Config, *store.ProfileStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	profileStore, err := store.NewProfileStore(cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := profileStore.Init(ctx); err != nil {
		_ = profileStore.Close()
		return nil, nil, err
	}
	return cfg, profileStore, nil
}

// resolveProfileArg accepts either a numeric id or a profile name.
func resolveProfileArg(ctx context.Context, profileStore *store.ProfileStore, arg string) (*types.Profile, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return profileStore.Get(ctx, id)
	}
	return profileStore.GetByName(ctx, arg)
}

func runProfilesList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	_, profileStore, err := openProfileStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = profileStore.Close() }()

	list, err := profileStore.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No profiles stored. Import one with 'cloudscope profiles import'.")
		return nil
	}

	active := color.New(color.FgGreen, color.Bold).Sprint("● active")
	data := pterm.TableData{{"ID", "NAME", "ACCOUNT", "REGION", ""}}
	for _, p := range list {
		marker := ""
		if p.IsActive {
			marker = active
		}
		data = append(data, []string{
			strconv.FormatInt(p.ID, 10),
			p.DisplayName(),
			p.AccountNumber,
			p.Region,
			marker,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func runProfilesActivate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	_, profileStore, err := openProfileStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = profileStore.Close() }()

	profile, err := resolveProfileArg(ctx, profileStore, args[0])
	if err != nil {
		return err
	}
	activated, err := profileStore.Activate(ctx, profile.ID)
	if err != nil {
		return err
	}

	pterm.Success.Printfln("Profile %s is now active", activated.DisplayName())
	return nil
}

func runProfilesDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	_, profileStore, err := openProfileStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = profileStore.Close() }()

	profile, err := resolveProfileArg(ctx, profileStore, args[0])
	if err != nil {
		return err
	}
	if err := profileStore.Delete(ctx, profile.ID); err != nil {
		return err
	}

	pterm.Success.Printfln("Deleted profile %s", profile.DisplayName())
	return nil
}

func runProfilesImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, profileStore, err := openProfileStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = profileStore.Close() }()

	text, err := readImportText(args[0])
	if err != nil {
		return err
	}

	region := importRegion
	if region == "" {
		region = cfg.AWS.DefaultRegion
	}

	profile, err := profiles.ParseCredentials(text, region)
	if err != nil {
		return err
	}

	// Best effort: a profile without a reachable STS still imports.
	if account, err := aws.NewResolver().AccountID(ctx, profile); err == nil {
		profile.AccountNumber = account
	} else {
		cliLogger().Warn().Err(err).Str("profile", profile.Name).Msg("could not resolve account number")
	}

	created, err := profileStore.Create(ctx, profile)
	if err != nil {
		return err
	}

	pterm.Success.Printfln("Imported profile %s (id %d, region %s)",
		created.DisplayName(), created.ID, created.Region)
	return nil
}

func readImportText(path string) (string, error) {
	if path == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read credentials file: %w", err)
	}
	return string(raw), nil
}
