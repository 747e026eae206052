package cmd

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/will-rowe/skim/src/misc"
	"github.com/will-rowe/skim/src/store"
)

// the command line arguments
var (
	appendIn1 *string // the sketch file that is added to
	appendIn2 *string // the sketch file whose samples are added
	appendOut *string // where to write the result (defaults to replacing in1)
)

// the append command (used by cobra)
var appendCmd = &cobra.Command{
	Use:   "append",
	Short: "Add the samples of one sketch file to another",
	Long: `Add the samples of one sketch file to another.

Both files must have been sketched with the same settings. A sample of --in2 that is already in
--in1 is merged into the existing sketch, any other sample is added after those of --in1.`,
	Run: func(cmd *cobra.Command, args []string) {
		runAppend(cmd)
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return misc.CheckRequiredFlags(cmd.Flags())
	},
}

// a function to initialise the command line arguments
func init() {
	appendIn1 = appendCmd.Flags().String("in1", "", "sketch file to add to - required")
	appendIn2 = appendCmd.Flags().String("in2", "", "sketch file to add - required")
	appendOut = appendCmd.Flags().StringP("out", "o", "", "write the combined sketches here instead of replacing --in1")
	appendCmd.MarkFlagRequired("in1")
	appendCmd.MarkFlagRequired("in2")
	RootCmd.AddCommand(appendCmd)
}

/*
The main function for the append command
*/
func runAppend(cmd *cobra.Command) {
	_, logFH := startRun(cmd)
	defer logFH.Close()

	// set up profiling
	if *profiling {
		defer profile.Start(profile.ProfilePath("./")).Stop()
	}
	start := time.Now()
	if *appendOut == "" {
		*appendOut = *appendIn1
	}

	log.Info("loading sketches...")
	first, err := store.Load(*appendIn1)
	misc.ErrorCheck(err)
	second, err := store.Load(*appendIn2)
	misc.ErrorCheck(err)
	log.Info("loaded", "in1", *appendIn1, "samples", first.Len())
	log.Info("loaded", "in2", *appendIn2, "samples", second.Len())

	combined, err := first.Append(second)
	misc.ErrorCheck(err)
	log.Info("appended", "samples", combined.Len(), "merged", first.Len()+second.Len()-combined.Len())

	log.Info("saving sketches", "file", *appendOut)
	misc.ErrorCheck(combined.Save(*appendOut, first.Codec()))
	log.Info("finished", "time", time.Since(start).Round(time.Millisecond))
}
