package main

import (
	"fmt"
	"strings"

	"github.com/xivdev/Penumbra-sub003/internal/core"
	"github.com/xivdev/Penumbra-sub003/internal/namespace"

	"github.com/spf13/cobra"
)

var folderRecursive bool

type nodeJSON struct {
	Path   string `json:"path"`
	Folder bool   `json:"folder"`
	ModID  string `json:"mod_id,omitempty"`
}

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Organize mods into folders",
	Long: `Organize mods into a folder tree. The tree is only for display and
selection; it never affects resolution.

Names are unique among siblings regardless of case. Empty folders left behind
by a move or delete are removed.`,
}

var folderLsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a folder",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFolderLs,
}

var folderMkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a folder and any missing parents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateTree(cmd, func(tree *namespace.Tree) error {
			_, err := tree.CreateAllFolders(args[0])
			return err
		})
	},
}

var folderMvCmd = &cobra.Command{
	Use:   "mv <path> <folder>",
	Short: "Move a mod or folder into another folder",
	Long: `Move a mod or folder into another folder. The target folder is created if needed.

A moved folder is merged into a same-named folder in the target; a moved mod
whose name is taken gets a numeric suffix.

Examples:
  pmr folder mv "Fancy Outfit" Gear/Body
  pmr folder mv Old New/Place`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateTree(cmd, func(tree *namespace.Tree) error {
			id, err := findNode(tree, args[0])
			if err != nil {
				return err
			}
			target, err := tree.CreateAllFolders(args[1])
			if err != nil {
				return err
			}
			return tree.Move(id, target)
		})
	},
}

var folderRenameCmd = &cobra.Command{
	Use:   "rename <path> <new-name>",
	Short: "Rename a mod or folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateTree(cmd, func(tree *namespace.Tree) error {
			id, err := findNode(tree, args[0])
			if err != nil {
				return err
			}
			return tree.Rename(id, args[1])
		})
	},
}

var folderRmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Remove a folder, moving its contents up",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateTree(cmd, func(tree *namespace.Tree) error {
			id, err := findNode(tree, args[0])
			if err != nil {
				return err
			}
			info, err := tree.Info(id)
			if err != nil {
				return err
			}
			if !info.Folder {
				return fmt.Errorf("%w: %s", namespace.ErrNotFolder, info.Path)
			}
			return tree.Delete(id)
		})
	},
}

func init() {
	folderLsCmd.Flags().BoolVarP(&folderRecursive, "recursive", "r", false, "list the whole subtree")

	folderCmd.AddCommand(folderLsCmd)
	folderCmd.AddCommand(folderMkdirCmd)
	folderCmd.AddCommand(folderMvCmd)
	folderCmd.AddCommand(folderRenameCmd)
	folderCmd.AddCommand(folderRmCmd)

	rootCmd.AddCommand(folderCmd)
}

func findNode(tree *namespace.Tree, path string) (namespace.NodeID, error) {
	id, ok := tree.Find(path)
	if !ok {
		return -1, fmt.Errorf("%w: %s", namespace.ErrNotFound, path)
	}
	return id, nil
}

// mutateTree applies fn to the folder tree and saves it
func mutateTree(cmd *cobra.Command, fn func(tree *namespace.Tree) error) error {
	return withService(func(svc *core.Service) error {
		if err := fn(svc.Namespace()); err != nil {
			return err
		}
		return svc.SaveNamespace()
	})
}

func runFolderLs(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	}

	return withService(func(svc *core.Service) error {
		tree := svc.Namespace()
		id, err := findNode(tree, path)
		if err != nil {
			return err
		}
		base, err := tree.Path(id)
		if err != nil {
			return err
		}

		var nodes []nodeJSON
		depths := []int{}
		if folderRecursive {
			tree.Walk(func(n namespace.NodeInfo, depth int) bool {
				if base == "" || strings.HasPrefix(strings.ToLower(n.Path), strings.ToLower(base)+"/") {
					nodes = append(nodes, nodeJSON{Path: n.Path, Folder: n.Folder, ModID: n.ModID})
					depths = append(depths, depth)
				}
				return true
			})
		} else {
			children, err := tree.Children(id)
			if err != nil {
				return err
			}
			for _, n := range children {
				nodes = append(nodes, nodeJSON{Path: n.Path, Folder: n.Folder, ModID: n.ModID})
				depths = append(depths, 0)
			}
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			if nodes == nil {
				nodes = []nodeJSON{}
			}
			return writeJSON(w, nodes)
		}

		baseDepth := strings.Count(base, "/")
		if base != "" {
			baseDepth++
		}
		for i, n := range nodes {
			indent := 0
			if folderRecursive {
				indent = depths[i] - baseDepth
			}
			name := n.Path[strings.LastIndex(n.Path, "/")+1:]
			if n.Folder {
				fmt.Fprintf(w, "%s%s/\n", strings.Repeat("  ", indent), header(name))
			} else {
				fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", indent), name, colorDim("("+n.ModID+")"))
			}
		}
		return nil
	})
}
