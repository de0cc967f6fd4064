package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerOnce bool

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Processa la cua d'importacions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		if workerOnce {
			n := app.ProcessQueue(ctx)
			fmt.Printf("%s %d importacions processades\n", green("✓"), n)
			return nil
		}
		return app.RunImportWorker(ctx)
	},
}

var (
	watchTree   string
	watchWorker bool
)

var watchCmd = &cobra.Command{
	Use:   "watch DIRECTORI",
	Short: "Encua els fitxers GEDCOM que apareixen en un directori",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := importOptions(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return app.WatchDir(ctx, args[0], watchTree, opts) })
		if watchWorker {
			g.Go(func() error { return app.RunImportWorker(ctx) })
		}
		return g.Wait()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Aplica les migracions pendents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.DB.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("%s esquema al dia (%s)\n", green("✓"), app.DB.Engine())
		return nil
	},
}

func init() {
	workerCmd.Flags().BoolVar(&workerOnce, "once", false, "fa una sola passada i surt")

	watchCmd.Flags().StringVar(&watchTree, "tree", "", "arbre de destinació (obligatori)")
	watchCmd.Flags().BoolVar(&watchWorker, "worker", false, "executa també el treballador de la cua")
	watchCmd.Flags().StringVar(&importMode, "mode", "", "replace_all, match_only, no_replace o append")
	watchCmd.Flags().StringVar(&importOffset, "append-offset", "", "desplaçament per al mode append: auto o un enter")
	_ = watchCmd.MarkFlagRequired("tree")
}
