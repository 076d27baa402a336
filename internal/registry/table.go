package registry

// orderedTable is a map that remembers first-insertion order. Overwriting a key keeps its
// original position.
type orderedTable[V any] struct {
	keys   []string
	values map[string]V
}

func newOrderedTable[V any]() orderedTable[V] {
	return orderedTable[V]{values: make(map[string]V)}
}

func (t *orderedTable[V]) set(key string, value V) {
	if t.values == nil {
		t.values = make(map[string]V)
	}
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

func (t *orderedTable[V]) get(key string) (V, bool) {
	v, ok := t.values[key]
	return v, ok
}

func (t *orderedTable[V]) len() int {
	return len(t.keys)
}

// RouteTable maps a route CIDR to its origin AS.
type RouteTable struct {
	t orderedTable[string]
}

func NewRouteTable() *RouteTable {
	return &RouteTable{t: newOrderedTable[string]()}
}

func (rt *RouteTable) Set(cidr, asn string) {
	rt.t.set(cidr, asn)
}

func (rt *RouteTable) Get(cidr string) (string, bool) {
	return rt.t.get(cidr)
}

func (rt *RouteTable) Len() int {
	return rt.t.len()
}

// Range calls fn for every route in insertion order until fn returns false.
func (rt *RouteTable) Range(fn func(cidr, asn string) bool) {
	for _, cidr := range rt.t.keys {
		if !fn(cidr, rt.t.values[cidr]) {
			return
		}
	}
}

// Allocation is the holder side of an inetnum/inet6num object.
type Allocation struct {
	NetName string
	Country string
}

// AllocationTable maps an inetnum CIDR to its holder.
type AllocationTable struct {
	t orderedTable[Allocation]
}

func NewAllocationTable() *AllocationTable {
	return &AllocationTable{t: newOrderedTable[Allocation]()}
}

func (at *AllocationTable) Set(cidr string, alloc Allocation) {
	at.t.set(cidr, alloc)
}

func (at *AllocationTable) Get(cidr string) (Allocation, bool) {
	return at.t.get(cidr)
}

func (at *AllocationTable) Len() int {
	return at.t.len()
}

func (at *AllocationTable) Range(fn func(cidr string, alloc Allocation) bool) {
	for _, cidr := range at.t.keys {
		if !fn(cidr, at.t.values[cidr]) {
			return
		}
	}
}
