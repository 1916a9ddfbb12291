package clock

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGen mints trade IDs. IDs are random 128-bit UUIDs; the per-process
// sequence counter breaks ordering ties between trades with equal timestamps.
type IDGen struct {
	seq atomic.Uint64
}

func NewIDGen() *IDGen { return &IDGen{} }

// Next returns a fresh trade ID and its strictly increasing sequence number.
func (g *IDGen) Next() (string, uint64) {
	return uuid.NewString(), g.seq.Add(1)
}

// Seq returns the last issued sequence number.
func (g *IDGen) Seq() uint64 {
	return g.seq.Load()
}
