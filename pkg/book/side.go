package book

// bookSide holds every resting entry for one side of one instrument:
// a level tree ordered by price plus an id index pointing straight at
// the resident entry. The index is a bijection onto resident entries;
// any resident entry has qty > 0.
type bookSide struct {
	side   Side
	levels *levelTree
	index  map[uint64]*restingOrder
}

func newBookSide(side Side) *bookSide {
	return &bookSide{
		side:   side,
		levels: newLevelTree(),
		index:  make(map[uint64]*restingOrder),
	}
}

func (s *bookSide) contains(id uint64) bool {
	_, ok := s.index[id]
	return ok
}

func (s *bookSide) len() int { return len(s.index) }

// insert creates the resting entry. The caller has already verified
// the id is not resident anywhere in the book.
func (s *bookSide) insert(o Order, seq uint64) *restingOrder {
	entry := &restingOrder{
		price:    o.Price,
		qty:      o.Qty,
		id:       o.ID,
		seq:      seq,
		side:     o.Side,
		traderID: o.TraderID,
	}
	s.levels.GetOrCreate(o.Price).enqueue(entry)
	s.index[o.ID] = entry
	return entry
}

// remove detaches the entry from its level and the index. Returns
// false if the id is not resident.
func (s *bookSide) remove(id uint64) bool {
	entry, ok := s.index[id]
	if !ok {
		return false
	}
	s.detach(entry)
	return true
}

// decrease shrinks the entry's qty in place, removing it when
// exhausted. Returns the remaining qty, 0 on full removal, or -1 if
// the id is not resident.
func (s *bookSide) decrease(id uint64, amt int64) int64 {
	entry, ok := s.index[id]
	if !ok {
		return -1
	}
	if amt >= entry.qty {
		s.detach(entry)
		return 0
	}
	entry.qty -= amt
	entry.level.totalQty -= amt
	return entry.qty
}

func (s *bookSide) detach(entry *restingOrder) {
	lvl := entry.level
	lvl.unlink(entry)
	if lvl.empty() {
		s.levels.Delete(lvl.price)
	}
	delete(s.index, entry.id)
}

// best returns the most aggressive level: highest price for bids,
// lowest for asks.
func (s *bookSide) best() *priceLevel {
	if s.side == Buy {
		return s.levels.Max()
	}
	return s.levels.Min()
}

// walkLevels visits levels from the best price inward.
func (s *bookSide) walkLevels(fn func(*priceLevel) bool) {
	if s.side == Buy {
		s.levels.Descending(fn)
	} else {
		s.levels.Ascending(fn)
	}
}

// walk visits resting entries in full priority order: best price
// first, FIFO within a level.
func (s *bookSide) walk(fn func(*restingOrder) bool) {
	s.walkLevels(func(lvl *priceLevel) bool {
		for o := lvl.head; o != nil; o = o.next {
			if !fn(o) {
				return false
			}
		}
		return true
	})
}
