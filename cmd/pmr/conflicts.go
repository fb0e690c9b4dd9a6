package main

import (
	"fmt"
	"io"

	"github.com/xivdev/Penumbra-sub003/internal/core"
	"github.com/xivdev/Penumbra-sub003/internal/domain"

	"github.com/spf13/cobra"
)

var conflictsUnsolved bool

type conflictJSON struct {
	Mod          string `json:"mod"`
	Other        string `json:"other"`
	Path         string `json:"path,omitempty"`
	Manipulation string `json:"manipulation,omitempty"`
	Solved       bool   `json:"solved"`
}

type conflictsJSONOutput struct {
	Collection string         `json:"collection"`
	Conflicts  []conflictJSON `json:"conflicts"`
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts [mod-id]",
	Short: "Show conflicts between enabled mods",
	Long: `Display every game path and manipulation claimed by more than one enabled mod.

The first mod listed owns the claim. A conflict is solved when the owner has a
strictly higher priority; mods with equal priority conflict in both directions.

Examples:
  pmr conflicts
  pmr conflicts fancy-outfit --unsolved`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConflicts,
}

func init() {
	conflictsCmd.Flags().BoolVar(&conflictsUnsolved, "unsolved", false, "only show unsolved conflicts")

	rootCmd.AddCommand(conflictsCmd)
}

func runConflicts(cmd *cobra.Command, args []string) error {
	modID := ""
	if len(args) == 1 {
		modID = args[0]
	}

	return withService(func(svc *core.Service) error {
		if modID != "" {
			if _, err := svc.Mod(modID); err != nil {
				return err
			}
		}
		conflicts, err := svc.Conflicts(cmd.Context(), collectionName, modID)
		if err != nil {
			return fmt.Errorf("resolving: %w", err)
		}

		out := conflictsJSONOutput{Collection: collectionOrDefault(svc), Conflicts: []conflictJSON{}}
		for _, c := range conflicts {
			if conflictsUnsolved && c.Solved {
				continue
			}
			out.Conflicts = append(out.Conflicts, toConflictJSON(c))
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(w, out)
		}
		printConflicts(w, out.Conflicts)
		return nil
	})
}

func toConflictJSON(c domain.ConflictRecord) conflictJSON {
	out := conflictJSON{Mod: c.Mod, Other: c.Other, Solved: c.Solved}
	if c.IsManipulation() {
		out.Manipulation = c.Manipulation.String()
	} else {
		out.Path = c.Path.String()
	}
	return out
}

func printConflicts(w io.Writer, conflicts []conflictJSON) {
	if len(conflicts) == 0 {
		fmt.Fprintln(w, "No conflicts found.")
		return
	}

	fmt.Fprintf(w, "Found %d conflict(s):\n\n", len(conflicts))
	for _, c := range conflicts {
		key := c.Path
		if key == "" {
			key = c.Manipulation
		}
		state := colorYellow("unsolved")
		if c.Solved {
			state = colorGreen("solved")
		}
		fmt.Fprintf(w, "  %s\n", key)
		fmt.Fprintf(w, "    Owner: %s\n", c.Mod)
		fmt.Fprintf(w, "    Over:  %s (%s)\n\n", c.Other, state)
	}
}
