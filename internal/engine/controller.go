package engine

import (
	"math/rand/v2"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Chooser picks between two valid candidates returned by the strategies of
// a Controller. It returns 0 for the first and 1 for the second.
type Chooser interface {
	Choose(first, second int) int
}

// RandomChooser picks uniformly with a seeded source. The choice is a
// documented point of nondeterminism: both candidates are improving.
type RandomChooser struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomChooser returns a chooser seeded for reproducible runs.
func NewRandomChooser(seed uint64) *RandomChooser {
	return &RandomChooser{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Choose implements Chooser.
func (c *RandomChooser) Choose(_, _ int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.IntN(2)
}

// PreferFirst always takes the first strategy's candidate.
type PreferFirst struct{}

// Choose implements Chooser.
func (PreferFirst) Choose(_, _ int) int { return 0 }

// Controller races two strategies of the same direction on two workers.
// Every call joins both workers before returning, and updates, resets and
// locks reach both strategies so either may win the next round.
type Controller struct {
	strategies [2]Strategy
	chooser    Chooser
	last       int
	wins       [2]int
}

// NewController wraps two strategies.
func NewController(first, second Strategy, chooser Chooser) *Controller {
	if chooser == nil {
		chooser = PreferFirst{}
	}
	return &Controller{strategies: [2]Strategy{first, second}, chooser: chooser, last: -1}
}

type candidate struct {
	index int
	ok    bool
}

func (c *Controller) race(price func(Strategy) (int, bool)) (int, bool) {
	var (
		g       errgroup.Group
		results [2]candidate
	)
	g.SetLimit(2)
	for k, s := range c.strategies {
		g.Go(func() error {
			idx, ok := price(s)
			results[k] = candidate{index: idx, ok: ok}
			return nil
		})
	}
	_ = g.Wait()

	winner := -1
	switch {
	case results[0].ok && results[1].ok:
		winner = c.chooser.Choose(results[0].index, results[1].index)
	case results[0].ok:
		winner = 0
	case results[1].ok:
		winner = 1
	default:
		return -1, false
	}
	c.wins[winner]++
	c.last = results[winner].index
	return c.last, true
}

// fanOut runs fn on both strategies concurrently and waits.
func (c *Controller) fanOut(fn func(Strategy)) {
	var g errgroup.Group
	g.SetLimit(2)
	for _, s := range c.strategies {
		g.Go(func() error {
			fn(s)
			return nil
		})
	}
	_ = g.Wait()
}

// PricePhase1 implements Strategy.
func (c *Controller) PricePhase1() (int, bool) {
	return c.race(Strategy.PricePhase1)
}

// PricePhase2 implements Strategy.
func (c *Controller) PricePhase2() (int, bool) {
	return c.race(Strategy.PricePhase2)
}

// Update implements Strategy.
func (c *Controller) Update(p *Pivot) {
	c.fanOut(func(s Strategy) { s.Update(p) })
}

// Reset implements Strategy.
func (c *Controller) Reset() {
	c.fanOut(Strategy.Reset)
}

// Lock implements Strategy.
func (c *Controller) Lock(index int) {
	for _, s := range c.strategies {
		s.Lock(index)
	}
}

// LockLastIndex locks the candidate last returned by the controller in
// both strategies.
func (c *Controller) LockLastIndex() {
	if c.last >= 0 {
		c.Lock(c.last)
	}
}

// ReleaseUsed implements Strategy.
func (c *Controller) ReleaseUsed() {
	for _, s := range c.strategies {
		s.ReleaseUsed()
	}
}

// Wins returns how often each strategy's candidate was taken.
func (c *Controller) Wins() [2]int { return c.wins }
