package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/will-rowe/skim/src/config"
	"github.com/will-rowe/skim/src/misc"
	"github.com/will-rowe/skim/src/pipeline"
	"github.com/will-rowe/skim/src/seqio"
	"github.com/will-rowe/skim/src/store"
)

// the command line arguments
var (
	inputList  *string   // file listing the samples and their sequence files
	sampleName *string   // name of a single sample given with --reads
	readFiles  *[]string // sequence files of that sample
	sketchOut  *string   // the store file to write
)

// the sketch command (used by cobra)
var sketchCmd = &cobra.Command{
	Use:   "sketch",
	Short: "Sketch a set of samples into a single sketch file",
	Long: `Sketch a set of samples into a single sketch file.

Samples are given either as an input list (-i), with one sample per line in the form
"name: file1,file2;file3" (the name may be left out, in which case the first file name is
used), or as a single sample with --name and --reads.`,
	Run: func(cmd *cobra.Command, args []string) {
		runSketch(cmd)
	},
}

// a function to initialise the command line arguments
func init() {
	inputList = sketchCmd.Flags().StringP("in", "i", "", "input list of samples")
	sampleName = sketchCmd.Flags().String("name", "", "sample name (use with --reads)")
	readFiles = sketchCmd.Flags().StringSlice("reads", nil, "FASTA/FASTQ files (optionally gzipped) of a single sample")
	sketchOut = sketchCmd.Flags().StringP("out", "o", "./"+config.SketchFileName, "sketch file to write")
	sketchCmd.Flags().UintP("kmer-size", "k", config.DefaultKmerSize, "size of k-mer (max. 32)")
	sketchCmd.Flags().UintP("nb-kmers", "n", config.DefaultSketchSize, "number of k-mers kept in each sketch")
	sketchCmd.Flags().Int("max-reads", config.DefaultMaxReads, "number of reads used per sample (0 for all)")
	sketchCmd.Flags().Bool("filter", false, "drop k-mers seen only once")
	sketchCmd.Flags().Uint32("min-abundance", 0, "drop k-mers seen fewer than this many times (overrides --filter)")
	sketchCmd.Flags().String("hasher", config.DefaultHasher, "k-mer hash function (xxhash or nthash)")
	sketchCmd.Flags().String("compression", config.DefaultCompression, "sketch file compression (none, lz4 or zstd)")
	RootCmd.AddCommand(sketchCmd)
}

// a function to check user supplied parameters and collect the samples
func sketchParamCheck() ([]seqio.Sample, error) {
	switch {
	case *inputList != "" && len(*readFiles) != 0:
		return nil, fmt.Errorf("use either an input list (-i) or --reads, not both")
	case *inputList != "":
		return seqio.LoadInputList(*inputList)
	case len(*readFiles) != 0:
		for _, file := range *readFiles {
			if err := misc.CheckFile(file); err != nil {
				return nil, err
			}
			if err := misc.CheckExt(file, seqio.Extensions); err != nil {
				return nil, err
			}
		}
		name := *sampleName
		if name == "" {
			name = seqio.SampleName((*readFiles)[0])
		}
		return []seqio.Sample{{Name: name, Files: *readFiles}}, nil
	}
	return nil, fmt.Errorf("no samples given - run `skim sketch --help` for more info on the command")
}

/*
The main function for the sketch command
*/
func runSketch(cmd *cobra.Command) {
	run, logFH := startRun(cmd)
	defer logFH.Close()

	// set up profiling
	if *profiling {
		defer profile.Start(profile.ProfilePath("./")).Stop()
	}
	start := time.Now()
	ctx, stop := signalContext()
	defer stop()

	// check the supplied files and then log some stuff
	log.Info("checking parameters...")
	samples, err := sketchParamCheck()
	misc.ErrorCheck(err)
	sketchConfig, err := run.SketchConfig()
	misc.ErrorCheck(err)
	codec, err := run.Codec()
	misc.ErrorCheck(err)
	log.Info("sketching", "samples", len(samples), "k-mer size", sketchConfig.KmerSize, "sketch size", sketchConfig.Capacity, "filter", sketchConfig.Filter, "hasher", sketchConfig.Hasher, "max reads", run.MaxReads)

	// sketch each sample and collect them in a store
	info := &pipeline.Info{
		NumProc:  run.Processors,
		MaxReads: run.MaxReads,
		Config:   sketchConfig,
	}
	sketches, err := pipeline.SketchSamples(ctx, info, samples)
	misc.ErrorCheck(err)
	sketchStore, err := store.New(sketchConfig)
	misc.ErrorCheck(err)
	for _, sketch := range sketches {
		misc.ErrorCheck(sketchStore.Add(sketch))
	}

	// write the sketch file
	log.Info("saving sketches", "file", *sketchOut, "compression", codec)
	misc.ErrorCheck(sketchStore.Save(*sketchOut, codec))
	log.Debug(misc.PrintMemUsage())
	log.Info("finished", "time", time.Since(start).Round(time.Millisecond))
}
