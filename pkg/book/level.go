package book

// priceLevel is a FIFO queue of resting entries at a single price.
// Enqueue appends at the tail, so list order is arrival order and the
// price-time tie-break falls out of plain traversal.
type priceLevel struct {
	price float64

	head *restingOrder
	tail *restingOrder

	totalQty int64
	count    int
}

func (l *priceLevel) enqueue(o *restingOrder) {
	o.level = l
	if l.head == nil {
		l.head = o
		l.tail = o
	} else {
		l.tail.next = o
		o.prev = l.tail
		l.tail = o
	}
	l.totalQty += o.qty
	l.count++
}

// unlink removes o from anywhere in the queue. The caller guarantees o
// is resident in this level.
func (l *priceLevel) unlink(o *restingOrder) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	o.next = nil
	o.prev = nil
	o.level = nil

	l.totalQty -= o.qty
	l.count--
}

func (l *priceLevel) empty() bool {
	return l.head == nil
}
