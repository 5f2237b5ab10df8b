package pnl

import "time"

// Lot is a slice of inventory acquired by a single trade. The quantity sign
// encodes the direction: positive for a long lot, negative for a short lot.
type Lot struct {
	Quantity Quantity  `json:"quantity"`
	Price    Money     `json:"price"` // unit cost at acquisition
	Time     time.Time `json:"time"`
}

// lots is an ordered queue of same-direction lots, oldest first.
type lots []Lot

// total returns the signed sum of the queue's quantities.
func (l lots) total() Quantity {
	var sum Quantity
	for _, lot := range l {
		sum = sum.Add(lot.Quantity)
	}
	return sum
}

// costBasis returns the signed total cost of the queue (quantity times unit price).
func (l lots) costBasis() Money {
	var cost Money
	for _, lot := range l {
		cost = cost.Add(lot.Price.Mul(lot.Quantity))
	}
	return cost
}

// fill describes one FIFO match: quantity closed against a resting lot.
type fill struct {
	lot     Lot
	matched Quantity // always positive
}

// consume closes up to qty (positive, in absolute units) against the queue,
// oldest lot first, and returns the fills plus the remaining unmatched
// quantity. The queue is reduced in place through the returned slice.
func (l lots) consume(qty Quantity) (fills []fill, rest lots, unmatched Quantity) {
	rest = l
	unmatched = qty
	for len(rest) > 0 && unmatched.IsPositive() {
		head := rest[0]
		avail := head.Quantity.Abs()
		matched := avail.Min(unmatched)
		fills = append(fills, fill{lot: head, matched: matched})
		unmatched = unmatched.Sub(matched)
		if matched.Equal(avail) {
			rest = rest[1:]
			continue
		}
		// Partial close keeps the remainder of the head lot, same age.
		remainder := avail.Sub(matched)
		if head.Quantity.IsNegative() {
			remainder = remainder.Neg()
		}
		rest = append(lots{{Quantity: remainder, Price: head.Price, Time: head.Time}}, rest[1:]...)
	}
	return fills, rest, unmatched
}
