package ts

import "cvrp/internal/genome"

// TabuList — ограниченный FIFO особей.
// Реализован как кольцевой буфер фиксированного размера
// с map для быстрой проверки по значению.
type TabuList struct {
	m    map[string]int // ключ особи → число вхождений в кольце
	ring []string       // кольцевой буфер ключей
	i    int            // позиция самой старой записи
	n    int            // число занятых ячеек
}

// NewTabuList создаёт табу-список заданной ёмкости (не меньше 1).
func NewTabuList(capacity int) *TabuList {
	if capacity < 1 {
		capacity = 1
	}
	return &TabuList{
		m:    make(map[string]int, capacity),
		ring: make([]string, capacity),
	}
}

// Push добавляет особь; при заполненном списке вытесняется самая старая.
func (t *TabuList) Push(ind genome.Individual) {
	k := ind.Key()
	if t.n == len(t.ring) {
		// Удаление старого элемента из кольцевого буфера
		old := t.ring[t.i]
		if t.m[old] <= 1 {
			delete(t.m, old)
		} else {
			t.m[old]--
		}
		t.ring[t.i] = k
		t.i = (t.i + 1) % len(t.ring)
	} else {
		t.ring[(t.i+t.n)%len(t.ring)] = k
		t.n++
	}
	t.m[k]++
}

// Contains проверяет, есть ли особь в списке.
func (t *TabuList) Contains(ind genome.Individual) bool {
	_, ok := t.m[ind.Key()]
	return ok
}

func (t *TabuList) Len() int { return t.n }
func (t *TabuList) Cap() int { return len(t.ring) }

// Reset очищает список, сохраняя ёмкость.
func (t *TabuList) Reset() {
	clear(t.m)
	t.i, t.n = 0, 0
}
