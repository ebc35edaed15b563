package strategy

import (
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/angeloszaimis/advisor-gateway/internal/upstream"
)

const defaultVirtualNodes = 100

// consistentHashStrategy pins a session to one replica so a conversation
// keeps hitting the same warm model context. The ring is rebuilt whenever the
// healthy set changes.
type consistentHashStrategy struct {
	virtualNodes int
	ring         atomic.Pointer[ringSnapshot]
	mutex        sync.Mutex
	fallback     roundRobinStrategy
}

type ringSnapshot struct {
	members   string
	positions []uint64
	owners    map[uint64]*upstream.Endpoint
}

func membersKey(endpoints []*upstream.Endpoint) string {
	var sb strings.Builder
	for _, e := range endpoints {
		sb.WriteString(e.String())
		sb.WriteByte('|')
	}
	return sb.String()
}

func buildRing(endpoints []*upstream.Endpoint, vnodes int, members string) *ringSnapshot {
	rs := &ringSnapshot{
		members:   members,
		positions: make([]uint64, 0, len(endpoints)*vnodes),
		owners:    make(map[uint64]*upstream.Endpoint, len(endpoints)*vnodes),
	}

	for _, e := range endpoints {
		for i := 0; i < vnodes; i++ {
			hash := xxhash.Sum64String(e.String() + "#" + strconv.Itoa(i))
			if _, taken := rs.owners[hash]; taken {
				continue
			}
			rs.positions = append(rs.positions, hash)
			rs.owners[hash] = e
		}
	}

	slices.Sort(rs.positions)
	return rs
}

func (r *ringSnapshot) lookup(hash uint64) *upstream.Endpoint {
	if len(r.positions) == 0 {
		return nil
	}

	idx, _ := slices.BinarySearch(r.positions, hash)
	if idx == len(r.positions) {
		idx = 0
	}

	return r.owners[r.positions[idx]]
}

// SelectEndpoint hashes key onto the ring. Anonymous calls without a session
// ID have nothing to pin and are spread round-robin.
func (s *consistentHashStrategy) SelectEndpoint(endpoints []*upstream.Endpoint, key string) *upstream.Endpoint {
	if len(endpoints) == 0 {
		return nil
	}
	if key == "" {
		return s.fallback.SelectEndpoint(endpoints, key)
	}

	return s.ringFor(endpoints).lookup(xxhash.Sum64String(key))
}

func (s *consistentHashStrategy) ringFor(endpoints []*upstream.Endpoint) *ringSnapshot {
	members := membersKey(endpoints)

	if rs := s.ring.Load(); rs != nil && rs.members == members {
		return rs
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if rs := s.ring.Load(); rs != nil && rs.members == members {
		return rs
	}

	rs := buildRing(endpoints, s.virtualNodes, members)
	s.ring.Store(rs)
	return rs
}

func NewConsistentHashStrategy(virtualNodes int) Strategy {
	if virtualNodes <= 0 {
		virtualNodes = defaultVirtualNodes
	}

	return &consistentHashStrategy{virtualNodes: virtualNodes}
}
