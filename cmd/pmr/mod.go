package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/xivdev/Penumbra-sub003/internal/core"
	"github.com/xivdev/Penumbra-sub003/internal/domain"

	"github.com/spf13/cobra"
)

type modJSON struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Version  string            `json:"version,omitempty"`
	Enabled  bool              `json:"enabled"`
	Priority int               `json:"priority"`
	Groups   map[string]uint32 `json:"groups,omitempty"`
	Error    string            `json:"error,omitempty"`
}

var modCmd = &cobra.Command{
	Use:   "mod",
	Short: "Inspect and configure mods in a collection",
	Long: `Inspect mods and change their settings in a collection.

Settings are stored per collection and take effect on the next resolution.`,
}

var modListCmd = &cobra.Command{
	Use:   "list",
	Short: "List mods and their settings",
	RunE:  runModList,
}

var modEnableCmd = &cobra.Command{
	Use:   "enable <mod-id>...",
	Short: "Enable mods",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args, true)
	},
}

var modDisableCmd = &cobra.Command{
	Use:   "disable <mod-id>...",
	Short: "Disable mods",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args, false)
	},
}

var modPriorityCmd = &cobra.Command{
	Use:   "priority <mod-id> <priority>",
	Short: "Set a mod's priority",
	Long: `Set a mod's priority. Higher priorities win conflicts; negative values are allowed.

Examples:
  pmr mod priority fancy-outfit 10
  pmr mod priority base-textures -- -5`,
	Args: cobra.ExactArgs(2),
	RunE: runModPriority,
}

var modSetCmd = &cobra.Command{
	Use:   "set <mod-id> <group> <value>",
	Short: "Set the value of an option group",
	Long: `Set the value of one of a mod's option groups.

For single groups the value is the index of the selected option. For multi
groups it is a bit mask of enabled options (decimal, 0x hex or 0b binary).

Examples:
  pmr mod set fancy-outfit Color 1
  pmr mod set fancy-outfit Extras 0b101`,
	Args: cobra.ExactArgs(3),
	RunE: runModSet,
}

var modResetCmd = &cobra.Command{
	Use:   "reset <mod-id>...",
	Short: "Reset mods to default settings",
	Long: `Delete the stored settings of mods in a collection. The mods become disabled
with priority 0 and every group at its default.

Mods that are no longer installed can be reset to clean up their settings.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runModReset,
}

func init() {
	modCmd.AddCommand(modListCmd)
	modCmd.AddCommand(modResetCmd)
	modCmd.AddCommand(modEnableCmd)
	modCmd.AddCommand(modDisableCmd)
	modCmd.AddCommand(modPriorityCmd)
	modCmd.AddCommand(modSetCmd)

	rootCmd.AddCommand(modCmd)
}

func runModList(cmd *cobra.Command, args []string) error {
	return withService(func(svc *core.Service) error {
		c, err := svc.Collection(collectionName)
		if err != nil {
			return err
		}

		mods := svc.Mods()
		out := make([]modJSON, 0, len(mods))
		for _, mod := range mods {
			s := c.Settings(mod)
			m := modJSON{ID: mod.ID, Name: mod.DisplayName(), Version: mod.Version, Enabled: s.Enabled, Priority: s.Priority}
			if len(mod.Groups) > 0 {
				m.Groups = make(map[string]uint32, len(mod.Groups))
				for i := range mod.Groups {
					m.Groups[mod.Groups[i].Name] = s.Setting(mod, i)
				}
			}
			if mod.LoadErr != nil {
				m.Error = mod.LoadErr.Error()
			}
			out = append(out, m)
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(w, out)
		}
		if len(out) == 0 {
			fmt.Fprintf(w, "No mods in %s.\n", svc.Config().ModsDir)
			return nil
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tVERSION\tENABLED\tPRIORITY\tGROUPS")
		fmt.Fprintln(tw, "--\t----\t-------\t-------\t--------\t------")
		for _, m := range out {
			enabled := "no"
			if m.Enabled {
				enabled = "yes"
			}
			groups := strconv.Itoa(len(m.Groups))
			if m.Error != "" {
				groups = "error"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", m.ID, m.Name, m.Version, enabled, m.Priority, groups)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		for _, m := range out {
			if m.Error != "" {
				fmt.Fprintf(os.Stderr, "%s %s: %s\n", colorRed("broken:"), m.ID, m.Error)
			}
		}
		return nil
	})
}

func setEnabled(cmd *cobra.Command, modIDs []string, enabled bool) error {
	return withService(func(svc *core.Service) error {
		for _, id := range modIDs {
			if err := svc.SetModEnabled(collectionName, id, enabled); err != nil {
				return fmt.Errorf("updating %s: %w", id, err)
			}
			state := colorGreen("enabled")
			if !enabled {
				state = colorDim("disabled")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", id, state)
		}
		return nil
	})
}

func runModReset(cmd *cobra.Command, args []string) error {
	return withService(func(svc *core.Service) error {
		for _, id := range args {
			if err := svc.ResetModSettings(collectionName, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", id, colorDim("reset"))
		}
		return nil
	})
}

func runModPriority(cmd *cobra.Command, args []string) error {
	priority, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid priority %q: %w", args[1], err)
	}

	return withService(func(svc *core.Service) error {
		if err := svc.SetModPriority(collectionName, args[0], priority); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s priority %d\n", args[0], priority)
		return nil
	})
}

func runModSet(cmd *cobra.Command, args []string) error {
	value, err := parseGroupValue(args[2])
	if err != nil {
		return err
	}

	return withService(func(svc *core.Service) error {
		if err := svc.SetGroupSetting(collectionName, args[0], args[1], value); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %d\n", args[0], args[1], value)
		return nil
	})
}

// parseGroupValue accepts decimal, 0x hex and 0b binary
func parseGroupValue(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidSetting, s)
	}
	return uint32(v), nil
}
