package claims

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync/atomic"

	"ms-allocation/internal/models"
)

// PoolSelector decides the order in which pools are tried during allocation
// and which pool receives released capacity. Pools are fungible, so any
// order is correct; the policy only shapes contention.
type PoolSelector interface {
	Order(pools []models.Pool) []models.Pool
	Pick(pools []models.Pool) models.Pool
}

const (
	PolicyRandom      = "random"
	PolicyRoundRobin  = "round-robin"
	PolicyLeastLoaded = "least-loaded"
)

func NewPoolSelector(policy string) (PoolSelector, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", PolicyRandom:
		return RandomSelector{}, nil
	case PolicyRoundRobin:
		return &RoundRobinSelector{}, nil
	case PolicyLeastLoaded:
		return LeastLoadedSelector{}, nil
	default:
		return nil, fmt.Errorf("unknown pool selection policy %q", policy)
	}
}

// RandomSelector shuffles candidates so concurrent callers do not all start
// on the same pool.
type RandomSelector struct{}

func (RandomSelector) Order(pools []models.Pool) []models.Pool {
	out := clonePools(pools)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func (RandomSelector) Pick(pools []models.Pool) models.Pool {
	return pools[rand.IntN(len(pools))]
}

// RoundRobinSelector rotates the starting pool on every call.
type RoundRobinSelector struct {
	next atomic.Uint64
}

func (s *RoundRobinSelector) Order(pools []models.Pool) []models.Pool {
	out := make([]models.Pool, 0, len(pools))
	if len(pools) == 0 {
		return out
	}
	start := s.cursor(len(pools))
	out = append(out, pools[start:]...)
	return append(out, pools[:start]...)
}

func (s *RoundRobinSelector) Pick(pools []models.Pool) models.Pool {
	return pools[s.cursor(len(pools))]
}

// cursor reduces in uint64 so the index stays valid after the counter wraps.
func (s *RoundRobinSelector) cursor(n int) int {
	return int((s.next.Add(1) - 1) % uint64(n))
}

// LeastLoadedSelector tries the fullest pools first and returns capacity to
// the emptiest one, which keeps shards level.
type LeastLoadedSelector struct{}

func (LeastLoadedSelector) Order(pools []models.Pool) []models.Pool {
	out := clonePools(pools)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Remaining > out[j].Remaining })
	return out
}

func (LeastLoadedSelector) Pick(pools []models.Pool) models.Pool {
	best := pools[0]
	for _, p := range pools[1:] {
		if p.Remaining < best.Remaining {
			best = p
		}
	}
	return best
}

func clonePools(pools []models.Pool) []models.Pool {
	out := make([]models.Pool, len(pools))
	copy(out, pools)
	return out
}
