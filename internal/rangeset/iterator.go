package rangeset

// Iterator walks a Set in ascending order and can erase while walking.
//
//	it := s.Iter()
//	for it.Valid() {
//		if drop(it.Value()) {
//			it.Erase()
//			continue
//		}
//		it.Next()
//	}
type Iterator struct {
	set    *Set
	pos    int
	offset int
}

func (s *Set) Iter() *Iterator { return &Iterator{set: s} }

func (it *Iterator) Valid() bool { return it.pos < len(it.set.ranges) }

func (it *Iterator) Value() int { return it.set.ranges[it.pos].Index + it.offset }

func (it *Iterator) Next() {
	it.offset++
	if it.offset >= it.set.ranges[it.pos].Count {
		it.pos++
		it.offset = 0
	}
}

// Erase removes the current value and moves to the next one.
func (it *Iterator) Erase() {
	it.pos = it.set.removeAt(it.pos, it.offset)
	it.offset = 0
}
