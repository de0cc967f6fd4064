package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcmoiagese/gedcomimport/core"
	"github.com/marcmoiagese/gedcomimport/db"
)

var (
	runsStatus string
	runsLimit  int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Consulta les execucions d'importació",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Llista les execucions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := app.DB.ListImportRuns(cmd.Context(), runsStatus, runsLimit)
		if err != nil {
			return err
		}
		if flagJSON {
			return json.NewEncoder(os.Stdout).Encode(runs)
		}
		if len(runs) == 0 {
			fmt.Println("cap execució")
			return nil
		}
		for _, r := range runs {
			fmt.Printf("%s  %-10s  %-16s  %s  %s\n", r.PublicID, statusLabel(r.Status), r.Tree, r.CreatedAt.Local().Format(time.DateTime), r.FilePath)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Mostra el resum d'una execució",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := app.DB.GetImportRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return json.NewEncoder(os.Stdout).Encode(run)
		}
		fmt.Printf("%s %s\n", bold("execució"), run.PublicID)
		fmt.Printf("  arbre:  %s\n  fitxer: %s\n  estat:  %s\n", run.Tree, run.FilePath, statusLabel(run.Status))
		if run.ErrorText != "" {
			fmt.Printf("  error:  %s\n", red(run.ErrorText))
		}
		if run.SummaryJSON != "" {
			var res core.Result
			if err := json.Unmarshal([]byte(run.SummaryJSON), &res); err == nil {
				printResult(os.Stdout, &res)
			}
		}
		return nil
	},
}

func statusLabel(status string) string {
	switch status {
	case db.RunDone:
		return green(status)
	case db.RunError:
		return red(status)
	case db.RunCancelled:
		return yellow(status)
	default:
		return status
	}
}

func init() {
	runsListCmd.Flags().StringVar(&runsStatus, "status", "", "filtra per estat (queued, done, error...)")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 50, "nombre màxim d'execucions")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}
