package cmd

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/will-rowe/skim/src/config"
	"github.com/will-rowe/skim/src/distance"
	"github.com/will-rowe/skim/src/export"
	"github.com/will-rowe/skim/src/misc"
	"github.com/will-rowe/skim/src/pipeline"
	"github.com/will-rowe/skim/src/seqio"
)

// the command line arguments
var (
	updateDir  *string // directory holding the sketch file and the matrices
	updateList *string // input list of the new samples
)

// the update command (used by cobra)
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Add new samples to an existing set of sketches and matrices",
	Long: `Add new samples to an existing set of sketches and matrices.

The directory given with --in-to-update must hold the sketch file (sketch.bin) and the matrices
from a previous run (raw or exported). New samples are sketched with the settings of the sketch
file, then only the distances involving them are computed. The sketch file, the raw matrices and
the exported matrices are all rewritten.`,
	Run: func(cmd *cobra.Command, args []string) {
		runUpdate(cmd)
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return misc.CheckRequiredFlags(cmd.Flags())
	},
}

// a function to initialise the command line arguments
func init() {
	updateDir = updateCmd.Flags().String("in-to-update", "", "directory holding sketch.bin and its matrices - required")
	updateList = updateCmd.Flags().StringP("in", "i", "", "input list of the new samples - required")
	updateCmd.Flags().Int("max-reads", config.DefaultMaxReads, "number of reads used per sample (0 for all)")
	updateCmd.Flags().Bool("gzip", false, "gzip the exported matrices")
	updateCmd.MarkFlagRequired("in-to-update")
	updateCmd.MarkFlagRequired("in")
	RootCmd.AddCommand(updateCmd)
}

/*
The main function for the update command
*/
func runUpdate(cmd *cobra.Command) {
	run, logFH := startRun(cmd)
	defer logFH.Close()

	// set up profiling
	if *profiling {
		defer profile.Start(profile.ProfilePath("./")).Stop()
	}
	start := time.Now()
	ctx, stop := signalContext()
	defer stop()

	// load the previous run
	log.Info("loading previous run...")
	previous, err := export.OpenRun(*updateDir)
	misc.ErrorCheck(err)
	existing := previous.Store
	log.Info("loaded", "samples", existing.Len(), "matrices", len(previous.Family.Matrices), "k-mer size", existing.Config.KmerSize, "sketch size", existing.Config.Capacity, "filter", existing.Config.Filter)

	// sketch the new samples with the stored settings
	samples, err := seqio.LoadInputList(*updateList)
	misc.ErrorCheck(err)
	info := &pipeline.Info{
		NumProc:  run.Processors,
		MaxReads: run.MaxReads,
		Config:   existing.Config,
	}
	log.Info("sketching new samples", "samples", len(samples), "max reads", run.MaxReads)
	sketches, err := pipeline.SketchSamples(ctx, info, samples)
	misc.ErrorCheck(err)

	// extend the matrices and write everything back in one go
	log.Info("updating matrices...")
	updated, err := previous.Update(ctx, distance.NewUpdater(distance.NewEngine(run.Processors)), sketches, export.Options{Gzip: run.Gzip, Workers: run.Processors})
	misc.ErrorCheck(err)
	log.Info("saved", "dir", *updateDir, "samples", updated.Store.Len())
	log.Debug(misc.PrintMemUsage())
	log.Info("finished", "time", time.Since(start).Round(time.Millisecond))
}
