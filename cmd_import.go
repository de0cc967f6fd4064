package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/marcmoiagese/gedcomimport/core"
)

var (
	importTree        string
	importMode        string
	importOffset      string
	importUppercase   bool
	importSkipLiving  bool
	importNewerOnly   bool
	importMedia       bool
	importLatLong     bool
	importEventsOnly  bool
	importAllEvents   bool
	importBranch      string
	importMediaRoot   string
	importMaxWarnings int
	importReport      string
	importQueue       bool
)

var importCmd = &cobra.Command{
	Use:   "import FITXER",
	Short: "Importa un fitxer GEDCOM en un arbre",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := importOptions(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		if importQueue {
			run, queued, err := app.QueueImport(ctx, args[0], importTree, opts)
			if err != nil {
				return err
			}
			if flagJSON {
				return json.NewEncoder(os.Stdout).Encode(run)
			}
			if queued {
				fmt.Printf("%s execució %s encuada per a l'arbre %s\n", green("✓"), bold(run.PublicID), run.Tree)
			} else {
				fmt.Printf("%s el fitxer ja és a la cua: %s (%s)\n", yellow("!"), bold(run.PublicID), run.Status)
			}
			return nil
		}

		res, runErr := app.ImportNow(ctx, args[0], importTree, opts)
		if res != nil {
			if importReport != "" {
				if err := writeReport(importReport, res); err != nil {
					return err
				}
			}
			if flagJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else {
				printResult(os.Stdout, res)
			}
		}
		return runErr
	},
}

func init() {
	f := importCmd.Flags()
	f.StringVar(&importTree, "tree", "", "arbre de destinació (obligatori)")
	f.StringVar(&importMode, "mode", "", "replace_all, match_only, no_replace o append")
	f.StringVar(&importOffset, "append-offset", "", "desplaçament per al mode append: auto o un enter")
	f.BoolVar(&importUppercase, "uppercase-surnames", false, "passa els cognoms a majúscules")
	f.BoolVar(&importSkipLiving, "skip-living", false, "no recalcula els indicadors de persona viva")
	f.BoolVar(&importNewerOnly, "newer-only", false, "en match_only, només actualitza si CHAN és més recent")
	f.BoolVar(&importMedia, "media", true, "importa els objectes multimèdia")
	f.BoolVar(&importLatLong, "lat-long", true, "importa les coordenades dels llocs")
	f.BoolVar(&importEventsOnly, "events-only", false, "només importa esdeveniments i cites de registres existents")
	f.BoolVar(&importAllEvents, "all-events", false, "tracta les etiquetes pròpies (_XXX) com a esdeveniments")
	f.StringVar(&importBranch, "branch", "", "només la branca que descendeix d'aquesta persona (p. ex. I12)")
	f.StringVar(&importMediaRoot, "media-root", "", "directori on buscar els fitxers multimèdia")
	f.IntVar(&importMaxWarnings, "max-warnings", 0, "avisos que es guarden al resum")
	f.StringVar(&importReport, "report", "", "desa el resum en YAML en aquest fitxer")
	f.BoolVar(&importQueue, "queue", false, "encua la importació per al treballador en lloc d'executar-la")
	_ = importCmd.MarkFlagRequired("tree")
}

// importOptions parteix dels valors de configuració i hi aplica les opcions
// indicades explícitament.
func importOptions(cmd *cobra.Command) (core.Options, error) {
	opts := core.OptionsFromConfig(app.Config)
	f := cmd.Flags()
	if f.Changed("mode") {
		mode, err := core.ParseReplaceMode(importMode)
		if err != nil {
			return opts, err
		}
		opts.ReplaceMode = mode
	}
	if f.Changed("append-offset") {
		off, err := core.ParseAppendOffset(importOffset)
		if err != nil {
			return opts, err
		}
		opts.AppendOffset = off
	}
	if f.Changed("uppercase-surnames") {
		opts.UppercaseSurnames = importUppercase
	}
	if f.Changed("skip-living") {
		opts.SkipLivingRecalculation = importSkipLiving
	}
	if f.Changed("newer-only") {
		opts.NewerOnly = importNewerOnly
	}
	if f.Changed("media") {
		opts.ImportMedia = importMedia
	}
	if f.Changed("lat-long") {
		opts.ImportLatLong = importLatLong
	}
	if f.Changed("all-events") {
		opts.AllEvents = importAllEvents
	}
	if f.Changed("media-root") {
		opts.MediaRoot = importMediaRoot
	}
	if f.Changed("max-warnings") {
		opts.MaxWarnings = importMaxWarnings
	}
	opts.EventsOnly = importEventsOnly
	opts.BranchFilter = importBranch
	return opts, nil
}

func writeReport(path string, res *core.Result) error {
	out, err := yaml.Marshal(res)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

func printResult(w io.Writer, res *core.Result) {
	switch res.Status {
	case core.StatusDone:
		fmt.Fprintf(w, "%s importació %s completada a l'arbre %s (%s)\n", green("✓"), res.RunID, bold(res.Tree), res.Duration().Round(time.Millisecond))
	case core.StatusCancelled:
		fmt.Fprintf(w, "%s importació %s cancel·lada\n", yellow("!"), res.RunID)
	default:
		fmt.Fprintf(w, "%s importació %s avortada\n", red("✗"), res.RunID)
	}
	rows := []struct {
		label string
		c     core.Count
	}{
		{"persones", res.Stats.Individuals},
		{"famílies", res.Stats.Families},
		{"fills", res.Stats.Children},
		{"esdeveniments", res.Stats.Events},
		{"fonts", res.Stats.Sources},
		{"dipòsits", res.Stats.Repositories},
		{"cites", res.Stats.Citations},
		{"notes", res.Stats.Notes},
		{"multimèdia", res.Stats.Media},
	}
	fmt.Fprintf(w, "  %-14s %8s %8s %8s %8s\n", "", "llegits", "nous", "actual.", "omesos")
	for _, r := range rows {
		if r.c == (core.Count{}) {
			continue
		}
		fmt.Fprintf(w, "  %-14s %8d %8d %8d %8d\n", r.label, r.c.Parsed, r.c.Inserted, r.c.Updated, r.c.Skipped)
	}
	if len(res.CustomEventTypes) > 0 {
		fmt.Fprintf(w, "  tipus d'esdeveniment propis: %d\n", len(res.CustomEventTypes))
	}
	if res.WarningsTotal > 0 {
		fmt.Fprintf(w, "%s %d avisos\n", yellow("!"), res.WarningsTotal)
		for _, warn := range res.Warnings {
			fmt.Fprintf(w, "  %s %s\n", yellow(string(warn.Code)), warn.String())
		}
		if hidden := res.WarningsTotal - len(res.Warnings); hidden > 0 {
			fmt.Fprintf(w, "  ... i %d més\n", hidden)
		}
	}
	for _, e := range res.Errors {
		fmt.Fprintf(w, "%s %s\n", red("error:"), e)
	}
}
