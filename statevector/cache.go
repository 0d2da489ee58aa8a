package statevector

// probabilityCache is a small bounded LRU from basis-state index to
// probability. Every mutating state-vector operation invalidates it
// wholesale (clear); unbounded caching would be a pitfall here because
// the cache is thrown away on every mutation anyway, per the design note
// in spec.md §9.
type probabilityCache struct {
	capacity int
	order    []int
	values   map[int]float64
}

func newProbabilityCache(capacity int) *probabilityCache {
	return &probabilityCache{
		capacity: capacity,
		order:    make([]int, 0, capacity),
		values:   make(map[int]float64, capacity),
	}
}

func (c *probabilityCache) get(i int) (float64, bool) {
	p, ok := c.values[i]
	if ok {
		// move i to the most-recently-used end of the eviction order
		for idx, k := range c.order {
			if k == i {
				c.order = append(c.order[:idx], c.order[idx+1:]...)
				break
			}
		}
		c.order = append(c.order, i)
	}
	return p, ok
}

func (c *probabilityCache) put(i int, p float64) {
	if _, exists := c.values[i]; !exists {
		if len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.values, oldest)
		}
		c.order = append(c.order, i)
	}
	c.values[i] = p
}

func (c *probabilityCache) clear() {
	c.order = c.order[:0]
	for k := range c.values {
		delete(c.values, k)
	}
}
