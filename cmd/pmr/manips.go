package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/xivdev/Penumbra-sub003/internal/core"

	"github.com/spf13/cobra"
)

var manipsFile string

type manipulationJSON struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Value    string `json:"value"`
	Owner    string `json:"owner"`
	Priority int    `json:"priority"`
}

var manipsCmd = &cobra.Command{
	Use:   "manips",
	Short: "Inspect and share metadata manipulations",
	Long: `Inspect the merged metadata manipulations of a collection, and move
manipulations between mods as shareable text.`,
}

var manipsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the winning manipulation for every identifier",
	RunE:  runManipsList,
}

var manipsExportCmd = &cobra.Command{
	Use:   "export [mod-id]",
	Short: "Export manipulations as text",
	Long: `Export a mod's default manipulations, or the merged manipulations of the
collection when no mod is given, as a single line of text.

Examples:
  pmr manips export fancy-outfit > outfit.txt
  pmr manips export -c Raid`,
	Args: cobra.MaximumNArgs(1),
	RunE: runManipsExport,
}

var manipsImportCmd = &cobra.Command{
	Use:   "import <mod-id>",
	Short: "Import manipulations into a mod",
	Long: `Import exported manipulations into a mod's default option. Entries with an
identifier the mod already has replace the existing value.

The text is read from --file, or from stdin.

Examples:
  pmr manips import other-mod --file outfit.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runManipsImport,
}

func init() {
	manipsImportCmd.Flags().StringVarP(&manipsFile, "file", "f", "", "read from file instead of stdin")

	manipsCmd.AddCommand(manipsListCmd)
	manipsCmd.AddCommand(manipsExportCmd)
	manipsCmd.AddCommand(manipsImportCmd)

	rootCmd.AddCommand(manipsCmd)
}

func runManipsList(cmd *cobra.Command, args []string) error {
	return withService(func(svc *core.Service) error {
		res, err := svc.Resolve(cmd.Context(), collectionName)
		if err != nil {
			return fmt.Errorf("resolving: %w", err)
		}

		out := make([]manipulationJSON, len(res.Manipulations))
		for i, m := range res.Manipulations {
			out[i] = manipulationJSON{
				ID:       m.ID.String(),
				Kind:     m.Kind().String(),
				Value:    m.String(),
				Owner:    m.Owner,
				Priority: m.Priority,
			}
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(w, out)
		}
		if len(out) == 0 {
			fmt.Fprintln(w, "No manipulations.")
			return nil
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "MANIPULATION\tOWNER\tPRIORITY")
		for _, m := range out {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", m.Value, m.Owner, m.Priority)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(w, "\n%d synthesized table(s)\n", len(res.Synthesized))
		return nil
	})
}

func runManipsExport(cmd *cobra.Command, args []string) error {
	modID := ""
	if len(args) == 1 {
		modID = args[0]
	}

	return withService(func(svc *core.Service) error {
		text, err := svc.ExportManipulations(cmd.Context(), collectionName, modID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), map[string]string{"data": text})
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	})
}

func runManipsImport(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if manipsFile != "" {
		data, err = os.ReadFile(manipsFile)
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return withService(func(svc *core.Service) error {
		n, err := svc.ImportManipulations(args[0], strings.TrimSpace(string(data)))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d manipulation(s) into %s\n", n, args[0])
		return nil
	})
}
