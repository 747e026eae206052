package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/will-rowe/skim/src/misc"
	"github.com/will-rowe/skim/src/reporting"
	"github.com/will-rowe/skim/src/store"
)

// the command line arguments
var (
	infoIn *string // the sketch file to describe
)

// the info command (used by cobra)
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe a sketch file",
	Long:  `Print the settings of a sketch file and a summary of each sample it holds`,
	Run: func(cmd *cobra.Command, args []string) {
		runInfo()
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return misc.CheckRequiredFlags(cmd.Flags())
	},
}

// a function to initialise the command line arguments
func init() {
	infoIn = infoCmd.Flags().StringP("in", "i", "", "sketch file - required")
	infoCmd.MarkFlagRequired("in")
	RootCmd.AddCommand(infoCmd)
}

// runInfo prints to stdout and doesn't log
func runInfo() {
	sketchStore, err := store.Load(*infoIn)
	misc.ErrorCheck(err)
	misc.ErrorCheck(reporting.Summary(os.Stdout, sketchStore))
}
