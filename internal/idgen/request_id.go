package idgen

import (
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	nodeBits       = 10
	sequenceBits   = 12
	maxNodeID      = -1 ^ (-1 << nodeBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	nodeShift      = sequenceBits
	timestampShift = sequenceBits + nodeBits
	customEpoch    = 1735689600000
)

// RequestIDGenerator hands out time-ordered 64-bit ids (snowflake layout) for
// request tracing. Ids are rendered in upper-case base 36.
type RequestIDGenerator struct {
	mu            sync.Mutex
	nodeID        int64
	sequence      int64
	lastTimestamp int64
	now           func() int64
}

func NewRequestIDGenerator(nodeID int64) (*RequestIDGenerator, error) {
	if nodeID < 0 || nodeID > maxNodeID {
		return nil, fmt.Errorf("node ID must be between 0 and %d", maxNodeID)
	}

	return &RequestIDGenerator{
		nodeID: nodeID,
		now:    func() int64 { return time.Now().UnixMilli() - customEpoch },
	}, nil
}

// NodeIDFromHostname derives a stable node id so replicas rarely collide.
func NodeIDFromHostname() int64 {
	host, err := os.Hostname()
	if err != nil {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(host))
	return int64(h.Sum32()) & maxNodeID
}

func (g *RequestIDGenerator) NextID() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	timestamp := g.now()

	if timestamp < g.lastTimestamp {
		return 0, fmt.Errorf("clock moved backwards by %d ms", g.lastTimestamp-timestamp)
	}

	if timestamp == g.lastTimestamp {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			for timestamp <= g.lastTimestamp {
				timestamp = g.now()
			}
		}
	} else {
		g.sequence = 0
	}

	g.lastTimestamp = timestamp

	return (timestamp << timestampShift) | (g.nodeID << nodeShift) | g.sequence, nil
}

// Next returns the next id as a string, or a timestamp fallback if the clock went backwards.
func (g *RequestIDGenerator) Next() string {
	id, err := g.NextID()
	if err != nil {
		return "T" + strings.ToUpper(strconv.FormatInt(time.Now().UnixNano(), 36))
	}
	return strings.ToUpper(strconv.FormatInt(id, 36))
}
