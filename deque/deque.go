// Package deque is a bounded double-ended queue. The review hub keeps the
// edit history of every airfoil in one: new snapshots go to the back, undo
// takes them from the back, and the oldest is dropped from the front when
// the history is full.
package deque

type Deque[T any] interface {
	// 队列的长度
	Size() int

	// false when full
	AddLast(item T) bool

	RemoveLast() (T, bool)

	RemoveFirst() (T, bool)

	// AddLast, dropping the front element when full
	Push(item T)

	IsFull() bool

	IsEmpty() bool
}
