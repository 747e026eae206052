package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/will-rowe/skim/src/distance"
	"github.com/will-rowe/skim/src/export"
	"github.com/will-rowe/skim/src/misc"
	"github.com/will-rowe/skim/src/store"
)

// the command line arguments
var (
	exportIn     *string // directory (or bundle) holding the matrices
	exportIn1    *string // sketch file the rows were built from
	exportIn2    *string // sketch file the columns were built from
	exportOut    *string // directory to write the text matrices to
	exportBundle *string // optional tar.gz to pack the matrices into
)

// the export command (used by cobra)
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write distance matrices as text",
	Long: `Write distance matrices as text.

Each matrix is written as mat_<kind>_<metric>.csv, with a header line of sample names and one
line per sample, using ';' as the separator. With --in1 (and --in2 for a cross comparison) the
sample names of the matrices are checked against the sketch files first.

--in can also be a .tar.gz bundle from an earlier export. Bundles only hold text matrices, which
don't record the sketch settings, so --in1 is needed to read them.`,
	Run: func(cmd *cobra.Command, args []string) {
		runExport(cmd)
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return misc.CheckRequiredFlags(cmd.Flags())
	},
}

// a function to initialise the command line arguments
func init() {
	exportIn = exportCmd.Flags().String("in", "", "directory (or .tar.gz bundle) holding the matrices - required")
	exportIn1 = exportCmd.Flags().String("in1", "", "sketch file the matrix rows were built from")
	exportIn2 = exportCmd.Flags().String("in2", "", "sketch file the matrix columns were built from (cross comparisons)")
	exportOut = exportCmd.Flags().StringP("out", "o", "", "directory to write to (default --in)")
	exportBundle = exportCmd.Flags().String("bundle", "", "also pack the matrices into this .tar.gz")
	exportCmd.Flags().Bool("gzip", false, "gzip the matrices")
	exportCmd.MarkFlagRequired("in")
	RootCmd.AddCommand(exportCmd)
}

// loadExportFamily reads the matrices, checking them against the sketch files when given
func loadExportFamily() (*distance.Family, error) {
	if *exportIn1 == "" {
		return distance.LoadFamily(*exportIn)
	}
	rows, err := store.Load(*exportIn1)
	if err != nil {
		return nil, err
	}
	cols := rows
	if *exportIn2 != "" {
		if cols, err = store.Load(*exportIn2); err != nil {
			return nil, err
		}
	}
	family, err := export.LoadFamily(*exportIn, rows.Config)
	if err != nil {
		return nil, err
	}
	return family, export.CheckNames(family, rows.Names(), cols.Names())
}

/*
The main function for the export command
*/
func runExport(cmd *cobra.Command) {
	run, logFH := startRun(cmd)
	defer logFH.Close()

	// set up profiling
	if *profiling {
		defer profile.Start(profile.ProfilePath("./")).Stop()
	}
	start := time.Now()
	ctx, stop := signalContext()
	defer stop()

	// unpack a bundle and read from there
	if strings.HasSuffix(*exportIn, export.BundleExt) {
		if *exportIn1 == "" {
			misc.ErrorCheck(fmt.Errorf("reading a bundle needs the sketch file it was built from (--in1)"))
		}
		tmpDir, err := os.MkdirTemp("", "skim-bundle-")
		misc.ErrorCheck(err)
		defer os.RemoveAll(tmpDir)
		log.Info("unpacking bundle", "file", *exportIn)
		misc.ErrorCheck(export.Unbundle(*exportIn, tmpDir))
		if *exportOut == "" {
			*exportOut = strings.TrimSuffix(*exportIn, export.BundleExt)
		}
		*exportIn = tmpDir
	}
	if *exportOut == "" {
		*exportOut = *exportIn
	}

	log.Info("loading matrices...")
	family, err := loadExportFamily()
	misc.ErrorCheck(err)
	rows, cols := len(family.Rows), len(family.Cols)
	log.Info("loaded", "matrices", len(family.Matrices), "rows", rows, "cols", cols)

	log.Info("exporting", "dir", *exportOut, "gzip", run.Gzip)
	paths, err := export.Family(ctx, family, *exportOut, export.Options{Gzip: run.Gzip, Workers: run.Processors})
	misc.ErrorCheck(err)
	if *exportBundle != "" {
		log.Info("bundling", "file", *exportBundle)
		misc.ErrorCheck(export.Bundle(paths, *exportBundle))
	}
	log.Info("finished", "time", time.Since(start).Round(time.Millisecond))
}
