package pipeline

import (
	"fmt"

	"github.com/will-rowe/skim/src/minhash"
	"github.com/will-rowe/skim/src/misc"
)

// READBATCH is the number of reads sent to a sketching minion at a time
const READBATCH int = 256

// Info stores the runtime information for a sketching run
type Info struct {
	NumProc  int // number of sketching minions, anything below 1 means all CPUs
	MaxReads int // reads to use per sample, 0 for all of them
	Config   minhash.Config
}

// check is a method to validate the runtime info before a run
func (Info *Info) check() error {
	if err := Info.Config.Validate(); err != nil {
		return err
	}
	if Info.MaxReads < 0 {
		return fmt.Errorf("max reads can't be negative: %d", Info.MaxReads)
	}
	return nil
}

// workers returns the number of minions to launch
func (Info *Info) workers() int {
	return misc.NumWorkers(Info.NumProc)
}
