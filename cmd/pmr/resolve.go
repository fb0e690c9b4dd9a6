package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/xivdev/Penumbra-sub003/internal/core"
	"github.com/xivdev/Penumbra-sub003/internal/domain"

	"github.com/spf13/cobra"
)

var (
	resolvePaths  bool
	resolvePrefix string
)

type resolutionJSON struct {
	Collection  string         `json:"collection"`
	Generation  uint64         `json:"generation"`
	Mods        []string       `json:"mods"`
	Paths       int            `json:"paths"`
	Conflicts   int            `json:"conflicts"`
	Missing     int            `json:"missing"`
	Synthesized int            `json:"synthesized"`
	Redirects   []redirectJSON `json:"redirects,omitempty"`
}

type redirectJSON struct {
	Path   string `json:"path"`
	Kind   string `json:"kind"`
	Target string `json:"target"`
	Owner  string `json:"owner"`
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Rebuild the resolution of a collection",
	Long: `Rebuild the resolution of a collection and print a summary.

With --paths every redirected game path is listed with its target and owner.

Examples:
  pmr resolve
  pmr resolve -c Raid --paths --prefix chara/equipment/`,
	RunE: runResolve,
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <game-path>...",
	Short: "Show what a game path resolves to",
	Long: `Show the replacement the current resolution uses for each game path.

Paths are normalized: backslashes become slashes and letters are lowered.

Examples:
  pmr lookup chara/equipment/e0201/model/c0101e0201_top.mdl`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLookup,
}

var missingCmd = &cobra.Command{
	Use:   "missing",
	Short: "List redirected files that do not exist",
	RunE:  runMissing,
}

func init() {
	resolveCmd.Flags().BoolVar(&resolvePaths, "paths", false, "list every redirected path")
	resolveCmd.Flags().StringVar(&resolvePrefix, "prefix", "", "only list paths with this prefix")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(missingCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	return withService(func(svc *core.Service) error {
		res, err := svc.Rebuild(cmd.Context(), collectionName)
		if err != nil {
			return fmt.Errorf("resolving: %w", err)
		}

		out := resolutionJSON{
			Collection:  collectionOrDefault(svc),
			Generation:  res.Generation,
			Mods:        res.Mods,
			Paths:       res.Map.Len(),
			Conflicts:   len(res.Conflicts),
			Missing:     len(res.Missing),
			Synthesized: len(res.Synthesized),
		}
		if resolvePaths {
			out.Redirects = redirects(res, resolvePrefix)
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(w, out)
		}

		fmt.Fprintf(w, "%s %s (generation %d)\n", header("Collection:"), out.Collection, out.Generation)
		fmt.Fprintf(w, "  Enabled mods: %d\n", len(out.Mods))
		fmt.Fprintf(w, "  Paths:        %d\n", out.Paths)
		fmt.Fprintf(w, "  Synthesized:  %d\n", out.Synthesized)
		if out.Conflicts > 0 {
			fmt.Fprintf(w, "  Conflicts:    %s\n", colorYellow(fmt.Sprint(out.Conflicts)))
		} else {
			fmt.Fprintf(w, "  Conflicts:    0\n")
		}
		if out.Missing > 0 {
			fmt.Fprintf(w, "  Missing:      %s\n", colorRed(fmt.Sprint(out.Missing)))
		}

		if resolvePaths && len(out.Redirects) > 0 {
			fmt.Fprintln(w)
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PATH\tKIND\tTARGET\tOWNER")
			for _, r := range out.Redirects {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Path, r.Kind, r.Target, r.Owner)
			}
			return tw.Flush()
		}
		return nil
	})
}

func redirects(res *core.Resolution, prefix string) []redirectJSON {
	var out []redirectJSON
	res.Map.WalkPrefix(prefix, func(p domain.GamePath, t domain.ReplacementTarget) bool {
		owner, _ := res.Map.Owner(p)
		out = append(out, redirectJSON{Path: p.String(), Kind: t.Kind.String(), Target: t.String(), Owner: owner})
		return true
	})
	return out
}

func runLookup(cmd *cobra.Command, args []string) error {
	return withService(func(svc *core.Service) error {
		res, err := svc.Resolve(cmd.Context(), collectionName)
		if err != nil {
			return fmt.Errorf("resolving: %w", err)
		}

		results := make([]redirectJSON, 0, len(args))
		for _, arg := range args {
			p, err := domain.NewGamePath(arg)
			if err != nil {
				return err
			}
			r := redirectJSON{Path: p.String()}
			if t, ok := res.Lookup(p); ok {
				r.Kind = t.Kind.String()
				r.Target = t.String()
				r.Owner, _ = res.Map.Owner(p)
			}
			results = append(results, r)
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(w, results)
		}
		for _, r := range results {
			if r.Kind == "" {
				fmt.Fprintf(w, "%s -> %s\n", r.Path, colorDim("(game file)"))
				continue
			}
			fmt.Fprintf(w, "%s -> %s %s\n", r.Path, r.Target, colorDim("["+r.Kind+", "+r.Owner+"]"))
		}
		return nil
	})
}

func runMissing(cmd *cobra.Command, args []string) error {
	return withService(func(svc *core.Service) error {
		res, err := svc.Resolve(cmd.Context(), collectionName)
		if err != nil {
			return fmt.Errorf("resolving: %w", err)
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			missing := res.Missing
			if missing == nil {
				missing = []string{}
			}
			return writeJSON(w, map[string][]string{"missing": missing})
		}
		if len(res.Missing) == 0 {
			fmt.Fprintln(w, "No missing files.")
			return nil
		}
		fmt.Fprintf(w, "%d missing file(s):\n", len(res.Missing))
		for _, p := range res.Missing {
			fmt.Fprintf(w, "  %s\n", colorRed(p))
		}
		return nil
	})
}

// collectionOrDefault returns the collection flag, or the configured default when it is empty
func collectionOrDefault(svc *core.Service) string {
	if collectionName != "" {
		return collectionName
	}
	return svc.Config().DefaultCollection
}

