package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// stateDigest hashes every road, zone occupancy and car in roster order.
// Two worlds built from the same layout and seed produce the same digest
// sequence.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, nowTick)
	digestWriteU64(h, &tmp, w.nextCarNum.Load())
	for _, r := range w.roads {
		digestWriteI64(h, &tmp, int64(r.id))
		digestWriteU64(h, &tmp, uint64(len(r.cars)))
		for _, in := range r.intersections {
			digestWriteU64(h, &tmp, uint64(len(in.present)))
			for _, c := range in.present {
				h.Write([]byte(c.id))
			}
		}
		for _, c := range r.cars {
			h.Write([]byte(c.id))
			digestWriteI64(h, &tmp, int64(c.rect.X))
			digestWriteI64(h, &tmp, int64(c.rect.Y))
			digestWriteI64(h, &tmp, int64(c.speed))
			h.Write([]byte{byte(c.state), byte(c.throttle)})
			digestWriteI64(h, &tmp, int64(c.travel))
			digestWriteI64(h, &tmp, int64(c.stallTicks))
		}
		for _, sp := range r.spawners() {
			digestWriteU64(h, &tmp, sp.nextTick)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}
