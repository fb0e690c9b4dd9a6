package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/xivdev/Penumbra-sub003/internal/core"

	"github.com/spf13/cobra"
)

type collectionJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Default   bool      `json:"default"`
	CreatedAt time.Time `json:"created_at"`
}

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage collections",
	Long: `Manage collections of mod settings.

Each collection stores its own enabled state, priority and option selections
for every mod. The default collection is created on first use.`,
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all collections",
	RunE:  runCollectionList,
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new collection",
	Long: `Create a new empty collection. Every mod starts disabled.

Examples:
  pmr collection create Raid`,
	Args: cobra.ExactArgs(1),
	RunE: runCollectionCreate,
}

var collectionDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a collection",
	Long: `Delete a collection and all of its settings. The default collection cannot be deleted.

Mods themselves are not touched.`,
	Args: cobra.ExactArgs(1),
	RunE: runCollectionDelete,
}

func init() {
	collectionCmd.AddCommand(collectionListCmd)
	collectionCmd.AddCommand(collectionCreateCmd)
	collectionCmd.AddCommand(collectionDeleteCmd)

	rootCmd.AddCommand(collectionCmd)
}

func runCollectionList(cmd *cobra.Command, args []string) error {
	return withService(func(svc *core.Service) error {
		// Make sure the default collection exists before listing
		if _, err := svc.Collection(""); err != nil {
			return err
		}
		list, err := svc.ListCollections()
		if err != nil {
			return err
		}

		def := svc.Config().DefaultCollection
		out := make([]collectionJSON, len(list))
		for i, c := range list {
			out[i] = collectionJSON{ID: c.ID, Name: c.Name, Default: strings.EqualFold(c.Name, def), CreatedAt: c.CreatedAt}
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(w, out)
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tDEFAULT\tCREATED")
		fmt.Fprintln(tw, "----\t-------\t-------")
		for _, c := range out {
			isDefault := ""
			if c.Default {
				isDefault = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, isDefault, c.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	})
}

func runCollectionCreate(cmd *cobra.Command, args []string) error {
	return withService(func(svc *core.Service) error {
		info, err := svc.CreateCollection(args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), collectionJSON{ID: info.ID, Name: info.Name, CreatedAt: info.CreatedAt})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created collection %s\n", colorGreen(info.Name))
		return nil
	})
}

func runCollectionDelete(cmd *cobra.Command, args []string) error {
	return withService(func(svc *core.Service) error {
		if err := svc.DeleteCollection(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted collection %s\n", args[0])
		return nil
	})
}
