package ledger

import "github.com/google/btree"

// btreeDegree controls node fan-out of the underlying B-tree.
const btreeDegree = 32

// entry is a single price observation keyed by its timestamp.
type entry struct {
	Timestamp int32
	Price     int32
}

func entryLess(a, b entry) bool {
	return a.Timestamp < b.Timestamp
}

// Ledger is an ordered timestamp -> price store owned by exactly one session.
// It is not safe for concurrent use.
type Ledger struct {
	entries *btree.BTreeG[entry]
}

func New() *Ledger {
	return &Ledger{
		entries: btree.NewG[entry](btreeDegree, entryLess),
	}
}

// Insert stores price at timestamp. A later insert for the same timestamp wins.
func (l *Ledger) Insert(timestamp, price int32) {
	l.entries.ReplaceOrInsert(entry{Timestamp: timestamp, Price: price})
}

// Len returns the number of distinct timestamps held.
func (l *Ledger) Len() int {
	return l.entries.Len()
}

// Range calls fn for every entry with minTime <= timestamp <= maxTime, in
// ascending timestamp order, until fn returns false.
func (l *Ledger) Range(minTime, maxTime int32, fn func(timestamp, price int32) bool) {
	if minTime > maxTime {
		return
	}

	l.entries.AscendGreaterOrEqual(entry{Timestamp: minTime}, func(e entry) bool {
		if e.Timestamp > maxTime {
			return false
		}
		return fn(e.Timestamp, e.Price)
	})
}

// Mean returns the average price over [minTime, maxTime], truncated toward zero.
// An inverted or empty range yields 0.
func (l *Ledger) Mean(minTime, maxTime int32) int32 {
	// int64 holds 2^32 prices of magnitude 2^31 without overflow
	var sum, count int64
	l.Range(minTime, maxTime, func(_, price int32) bool {
		sum += int64(price)
		count++
		return true
	})

	if count == 0 {
		return 0
	}

	// The quotient lies between the smallest and largest price, so it always fits.
	return int32(sum / count)
}
