package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/ecoloop/internal/app"
	"github.com/abhisek/ecoloop/internal/levelgraph"
)

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "List the level catalog in map order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		g, err := app.LoadGraph(cfg.LevelsFile)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-4s  %-5s  %-20s  %-10s  %-9s  %s\n",
			"ID", "Order", "Name", "Theme", "Threshold", "Requires")
		fmt.Fprintln(out, strings.Repeat("─", 70))

		for _, l := range g.Levels() {
			requires := "-"
			if len(l.Prerequisites) > 0 {
				ids := make([]string, len(l.Prerequisites))
				for i, id := range l.Prerequisites {
					ids[i] = fmt.Sprint(id)
				}
				requires = strings.Join(ids, ", ")
			}
			fmt.Fprintf(out, "%-4d  %-5d  %-20s  %-10s  %-9d  %s\n",
				l.ID, l.Order, l.Name, l.Theme, l.Threshold(cfg.PassThreshold), requires)
		}

		fmt.Fprintf(out, "\n%d levels\n", g.Len())
		return nil
	},
}

var levelsValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a YAML level catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := levelgraph.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d levels, %d roots, ok\n", args[0], g.Len(), len(g.Roots()))
		return nil
	},
}

var levelsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the active catalog as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		g, err := app.LoadGraph(cfg.LevelsFile)
		if err != nil {
			return err
		}
		b, err := levelgraph.Marshal(g)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	},
}

func init() {
	levelsCmd.AddCommand(levelsValidateCmd)
	levelsCmd.AddCommand(levelsExportCmd)
}
