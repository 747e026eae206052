package pipeline

/*
 this part of the pipeline will stream the reads of a sample, sketch them across the minions and reduce the result
*/

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/will-rowe/skim/src/minhash"
	"github.com/will-rowe/skim/src/misc"
	"github.com/will-rowe/skim/src/seqio"
)

// ReadStreamer is a pipeline process that streams batches of reads from the files of one sample
type ReadStreamer struct {
	info      *Info
	input     []string
	output    chan [][]byte
	readCount int
	progress  *rate.Sometimes
}

// NewReadStreamer is the constructor
func NewReadStreamer(info *Info) *ReadStreamer {
	return &ReadStreamer{
		info:     info,
		output:   make(chan [][]byte, BUFFERSIZE),
		progress: &rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

// Connect is the method to connect the ReadStreamer to some data source
func (proc *ReadStreamer) Connect(input []string) {
	proc.input = input
}

// Run is the method to run this process, which satisfies the pipeline interface. Reads
// are streamed in file order, stopping once MaxReads have been sent.
func (proc *ReadStreamer) Run(ctx context.Context) error {
	defer close(proc.output)
	batch := make([][]byte, 0, READBATCH)
	send := func() error {
		if len(batch) == 0 {
			return nil
		}
		select {
		case proc.output <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}
		batch = make([][]byte, 0, READBATCH)
		return nil
	}
	for _, file := range proc.input {
		done, err := proc.streamFile(file, &batch, send)
		if err != nil {
			return err
		}
		if done {
			break
		}
	}
	return send()
}

// streamFile reads one file into the batch, returning true once the read cap is reached
func (proc *ReadStreamer) streamFile(file string, batch *[][]byte, send func() error) (bool, error) {
	fh, err := seqio.Open(file)
	if err != nil {
		return false, err
	}
	defer fh.Close()
	reader, err := seqio.NewReader(fh)
	if err != nil {
		return false, fmt.Errorf("can't read %v: %w", file, err)
	}
	for reader.Next() {
		*batch = append(*batch, reader.Sequence().Seq)
		proc.readCount++
		proc.progress.Do(func() {
			log.Debug("streaming reads", "file", file, "reads", proc.readCount)
		})
		if len(*batch) == READBATCH {
			if err := send(); err != nil {
				return false, err
			}
		}
		if proc.info.MaxReads > 0 && proc.readCount >= proc.info.MaxReads {
			return true, nil
		}
	}
	if err := reader.Err(); err != nil {
		return false, fmt.Errorf("error reading %v: %w", file, err)
	}
	return false, nil
}

// ReadCount returns the number of reads streamed (call after the pipeline has finished)
func (proc *ReadStreamer) ReadCount() int {
	return proc.readCount
}

// SketchSample runs the sketching pipeline over the files of one sample
func SketchSample(ctx context.Context, info *Info, sample seqio.Sample) (*minhash.Sketch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := info.check(); err != nil {
		return nil, err
	}
	if len(sample.Files) == 0 {
		return nil, fmt.Errorf("sample %q has no files", sample.Name)
	}
	for _, file := range sample.Files {
		if err := misc.CheckFile(file); err != nil {
			return nil, err
		}
	}

	// build and run the pipeline
	sketchingPipeline := NewPipeline()
	readStreamer := NewReadStreamer(info)
	boss := newBoss(info)
	readStreamer.Connect(sample.Files)
	boss.Connect(readStreamer)
	sketchingPipeline.AddProcesses(readStreamer, boss)
	log.Debug("starting pipeline", "sample", sample.Name, "processes", sketchingPipeline.GetNumProcesses(), "minions", info.workers(), "files", len(sample.Files))
	if err := sketchingPipeline.Run(ctx); err != nil {
		return nil, fmt.Errorf("sketching sample %q failed: %w", sample.Name, err)
	}

	// reduce the minion frontiers
	sketch := boss.reduce(sample.Name)
	log.Debug("sketched sample", "sample", sample.Name, "reads", readStreamer.ReadCount(), "k-mers", boss.kmerCount, "retained", sketch.Len(), "minions", len(boss.minionRegister))
	if readStreamer.ReadCount() == 0 || sketch.Len() == 0 {
		return nil, &misc.NoReadsError{Sample: sample.Name}
	}
	return sketch, nil
}

// SketchSamples sketches each sample in turn, returning the sketches in the same order
func SketchSamples(ctx context.Context, info *Info, samples []seqio.Sample) ([]*minhash.Sketch, error) {
	sketches := make([]*minhash.Sketch, 0, len(samples))
	for i, sample := range samples {
		sketch, err := SketchSample(ctx, info, sample)
		if err != nil {
			return nil, err
		}
		log.Info("sketched sample", "sample", sample.Name, "progress", fmt.Sprintf("%d/%d", i+1, len(samples)), "hashes", sketch.Len())
		sketches = append(sketches, sketch)
	}
	return sketches, nil
}
