// Copyright © 2017 Will Rowe <will.rowe@stfc.ac.uk>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/will-rowe/skim/src/config"
	"github.com/will-rowe/skim/src/misc"
	"github.com/will-rowe/skim/src/version"
)

// the command line arguments
var (
	proc       *int    // number of processors to use
	profiling  *bool   // create profile for go pprof
	configFile *string // optional config file
	logFile    *string // the log file
	verbose    *bool   // debug logging
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "skim",
	Short: "compare metagenomes with bounded MinHash sketches",
	Long: `
#####################################################################################
		skim: sketch, compare and update metagenome distance matrices
#####################################################################################

 skim sketches each sample into a bounded bottom-n MinHash sketch that keeps
 k-mer abundances, optionally dropping k-mers seen fewer than a threshold number
 of times (which removes most sequencing errors).

 Sketches are collected in a single file, and every pair of samples can then be
 compared with a family of presence/absence and abundance based distances. When
 new samples arrive, existing matrices are extended rather than recomputed.

 Matrices are exported as semicolon separated text, optionally gzipped.`,
}

/*
  A function to add all child commands to the root command and sets flags appropriately
*/
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

/*
A function to initalise the command line arguments
*/
func init() {
	proc = RootCmd.PersistentFlags().IntP("processors", "p", config.DefaultProcessors, "number of processors to use (0 for all of them)")
	profiling = RootCmd.PersistentFlags().Bool("profiling", false, "create the files needed to profile skim using the go tool pprof")
	configFile = RootCmd.PersistentFlags().String("config", "", "config file (default is ./skim.yaml, then the user config directory)")
	logFile = RootCmd.PersistentFlags().String("logFile", config.DefaultLogFile, "filename for log file")
	verbose = RootCmd.PersistentFlags().Bool("verbose", false, "write debug messages to the log")
}

// startRun loads the config for a sub command and starts logging
func startRun(cmd *cobra.Command) (*config.Run, *os.File) {
	run, err := config.Load(*configFile, cmd.Flags())
	misc.ErrorCheck(err)
	logFH, err := misc.StartLogging(run.LogFile, run.Verbose)
	misc.ErrorCheck(err)
	log.Infof("this is skim (version %s)", version.GetVersion())
	log.Infof("starting the %s subcommand", cmd.Name())
	misc.ErrorCheck(run.Validate())
	run.Processors = misc.NumWorkers(run.Processors)
	log.Info("runtime", "processors", run.Processors, "log file", run.LogFile)
	return run, logFH
}

// signalContext is cancelled on an interrupt, so that workers stop and no partial output is left
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
