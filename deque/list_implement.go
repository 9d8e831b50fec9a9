package deque

type ListDeque[T any] struct {
	head *node[T]
	tail *node[T]

	size     int
	capacity int
}

type node[T any] struct {
	val  T
	pre  *node[T]
	next *node[T]
}

var _ Deque[int] = (*ListDeque[int])(nil)

// 工厂方法
func NewListDeque[T any](capacity int) *ListDeque[T] {
	head := &node[T]{}
	tail := &node[T]{}
	head.next = tail
	tail.pre = head

	return &ListDeque[T]{
		head:     head,
		tail:     tail,
		size:     0,
		capacity: capacity,
	}
}

func (ld *ListDeque[T]) Size() int {
	return ld.size
}

func (ld *ListDeque[T]) AddLast(item T) bool {
	if ld.IsFull() {
		return false
	}
	newNode := &node[T]{
		val: item,
	}
	tmp := ld.tail.pre
	ld.tail.pre = newNode
	newNode.next = ld.tail
	newNode.pre = tmp
	tmp.next = newNode
	ld.size++
	return true
}

func (ld *ListDeque[T]) RemoveLast() (T, bool) {
	var zero T
	if ld.size == 0 {
		return zero, false
	}
	n := ld.tail.pre
	ld.tail.pre = n.pre
	ld.tail.pre.next = ld.tail
	ld.size--
	return n.val, true
}

func (ld *ListDeque[T]) RemoveFirst() (T, bool) {
	var zero T
	if ld.size == 0 {
		return zero, false
	}
	n := ld.head.next
	ld.head.next = n.next
	ld.head.next.pre = ld.head
	ld.size--
	return n.val, true
}

func (ld *ListDeque[T]) Push(item T) {
	if ld.capacity <= 0 {
		return
	}
	if ld.IsFull() {
		ld.RemoveFirst()
	}
	ld.AddLast(item)
}

func (ld *ListDeque[T]) IsFull() bool {
	return ld.size >= ld.capacity
}

func (ld *ListDeque[T]) IsEmpty() bool {
	return ld.size == 0
}
