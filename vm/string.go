package vm

// String is an interned, immutable Lua string. Interning guarantees
// intern(s) == intern(s) by pointer identity for any byte sequence s
// , so RawEqual and table-key hashing never need to compare
// contents once two Values are confirmed to be strings.
type String struct {
	gcColor
	Value string
}

// NewRawString builds a *String not yet registered with any Collector or
// StringPool. The compiler uses this to stage string constants before a
// Proto is loaded into a State; State.Load re-interns every such constant
// against its own StringPool so that a LOADK'd string and an equal string
// computed at runtime (e.g. by CONCAT) share one canonical identity.
func NewRawString(s string) *String { return &String{Value: s} }

// StringPool interns Go strings into *String heap objects, owned by a
// State so distinct States never share interned strings.
type StringPool struct {
	gc      *Collector
	entries map[string]*String
}

func NewStringPool(gc *Collector) *StringPool {
	return &StringPool{gc: gc, entries: make(map[string]*String)}
}

// Intern returns the canonical *String for s, allocating one the first
// time s is seen.
func (p *StringPool) Intern(s string) *String {
	if existing, ok := p.entries[s]; ok {
		return existing
	}
	str := &String{Value: s}
	p.gc.register(str)
	p.entries[s] = str
	return str
}
