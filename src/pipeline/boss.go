package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/will-rowe/skim/src/minhash"
)

// theBoss is used to orchestrate the sketching minions for one sample
type theBoss struct {
	info           *Info              // the runtime info for the pipeline
	input          chan [][]byte      // the boss uses this channel to receive read batches from the streamer
	minionRegister []*sketchingMinion // used to keep a record of the sketching minions
	kmerCount      uint64             // the number of k-mers hashed by all the minions
	sync.Mutex                        // allows sketching minions to update the Boss's count
}

// newBoss will initialise and return theBoss
func newBoss(runtimeInfo *Info) *theBoss {
	return &theBoss{
		info: runtimeInfo,
	}
}

// Connect is the method to connect theBoss to the output of a ReadStreamer
func (theBoss *theBoss) Connect(previous *ReadStreamer) {
	theBoss.input = previous.output
}

// Run is the method to run this process, which satisfies the pipeline interface. One minion
// is launched per worker and they all pull from the same channel, so which minion sees which
// read is down to the scheduler. The reduce step doesn't care.
func (theBoss *theBoss) Run(ctx context.Context) error {
	numMinions := theBoss.info.workers()
	theBoss.minionRegister = make([]*sketchingMinion, numMinions)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < numMinions; i++ {
		minion, err := newSketchingMinion(i, theBoss)
		if err != nil {
			return err
		}
		theBoss.minionRegister[i] = minion
		g.Go(func() error {
			return minion.run(ctx)
		})
	}
	return g.Wait()
}

// reduce collects the frontiers of all the minions into the sample sketch
func (theBoss *theBoss) reduce(name string) *minhash.Sketch {
	frontiers := make([]*minhash.Frontier, 0, len(theBoss.minionRegister))
	for _, minion := range theBoss.minionRegister {
		if minion != nil {
			frontiers = append(frontiers, minion.frontier)
		}
	}
	return minhash.Reduce(name, theBoss.info.Config, frontiers...)
}

// sketchingMinion hashes the reads it is sent into its own frontier
type sketchingMinion struct {
	id       int
	boss     *theBoss
	hasher   *minhash.KmerHasher
	frontier *minhash.Frontier
}

// newSketchingMinion is the constructor function
func newSketchingMinion(id int, boss *theBoss) (*sketchingMinion, error) {
	hasher, err := minhash.NewKmerHasher(boss.info.Config.Hasher, boss.info.Config.KmerSize)
	if err != nil {
		return nil, err
	}
	return &sketchingMinion{
		id:       id,
		boss:     boss,
		hasher:   hasher,
		frontier: minhash.NewFrontier(boss.info.Config.Capacity, boss.info.Config.Filter),
	}, nil
}

// run pulls read batches until the channel closes or the context is cancelled
func (minion *sketchingMinion) run(ctx context.Context) error {
	var kmerCount uint64
	emit := func(hv uint64) {
		kmerCount++
		minion.frontier.Add(hv)
	}
	defer func() {
		minion.boss.Lock()
		minion.boss.kmerCount += kmerCount
		minion.boss.Unlock()
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-minion.boss.input:
			if !ok {
				return nil
			}
			for _, read := range batch {
				if err := minion.hasher.Hash(read, emit); err != nil {
					return err
				}
			}
		}
	}
}
