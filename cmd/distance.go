package cmd

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/will-rowe/skim/src/distance"
	"github.com/will-rowe/skim/src/misc"
	"github.com/will-rowe/skim/src/store"
)

// the command line arguments
var (
	distanceIn1 *string // the sketch file for the matrix rows
	distanceIn2 *string // optional sketch file for the matrix columns
	distanceOut *string // directory to write the matrices to
)

// the distance command (used by cobra)
var distanceCmd = &cobra.Command{
	Use:   "distance",
	Short: "Compute the distance matrices between sketched samples",
	Long: `Compute the distance matrices between sketched samples.

With only --in1, every sample is compared to every other sample. With --in2 as well, each sample
of --in1 is compared to each sample of --in2. One matrix is written per metric.`,
	Run: func(cmd *cobra.Command, args []string) {
		runDistance(cmd)
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return misc.CheckRequiredFlags(cmd.Flags())
	},
}

// a function to initialise the command line arguments
func init() {
	distanceIn1 = distanceCmd.Flags().String("in1", "", "sketch file - required")
	distanceIn2 = distanceCmd.Flags().String("in2", "", "second sketch file, for a cross comparison")
	distanceOut = distanceCmd.Flags().StringP("out", "o", "./skim-distance", "directory to write the matrices to")
	distanceCmd.Flags().StringSlice("metrics", nil, "metrics to compute, from: "+strings.Join(distance.MetricIDs(), ", ")+" (default all)")
	distanceCmd.MarkFlagRequired("in1")
	RootCmd.AddCommand(distanceCmd)
}

// sameFile reports whether two paths point at the same file
func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

/*
The main function for the distance command
*/
func runDistance(cmd *cobra.Command) {
	run, logFH := startRun(cmd)
	defer logFH.Close()

	// set up profiling
	if *profiling {
		defer profile.Start(profile.ProfilePath("./")).Stop()
	}
	start := time.Now()
	ctx, stop := signalContext()
	defer stop()

	metrics, err := run.MetricSet()
	misc.ErrorCheck(err)
	log.Info("loading sketches...")
	rows, err := store.Load(*distanceIn1)
	misc.ErrorCheck(err)
	log.Info("loaded", "in1", *distanceIn1, "samples", rows.Len(), "k-mer size", rows.Config.KmerSize, "sketch size", rows.Config.Capacity, "filter", rows.Config.Filter)

	engine := distance.NewEngine(run.Processors)
	var family *distance.Family
	if *distanceIn2 == "" || sameFile(*distanceIn1, *distanceIn2) {
		log.Info("computing distances", "metrics", len(metrics), "pairs", rows.Len()*(rows.Len()-1)/2)
		family, err = engine.Compute(ctx, rows, metrics)
		misc.ErrorCheck(err)
	} else {
		cols, err := store.Load(*distanceIn2)
		misc.ErrorCheck(err)
		log.Info("loaded", "in2", *distanceIn2, "samples", cols.Len())
		log.Info("computing cross distances", "metrics", len(metrics), "pairs", rows.Len()*cols.Len())
		family, err = engine.ComputeCross(ctx, rows, cols, metrics)
		misc.ErrorCheck(err)
	}

	log.Info("saving matrices", "dir", *distanceOut)
	misc.ErrorCheck(family.Save(*distanceOut))
	log.Debug(misc.PrintMemUsage())
	log.Info("finished", "time", time.Since(start).Round(time.Millisecond))
}
