package vm

// UserData wraps an opaque host value so it can flow through Lua code as
// a first-class Value: stored in tables, passed as arguments, and given
// metamethods via its own Metatable, exactly like a Table's.
type UserData struct {
	gcColor

	Data      interface{}
	Metatable *Table
}

// NewUserData allocates a UserData wrapping data and registers it with
// the collector.
func NewUserData(gc *Collector, data interface{}) *UserData {
	u := &UserData{Data: data}
	gc.register(u)
	return u
}

// traceRefs visits the metatable, the only heap reference a UserData can
// hold; Data is host-owned and opaque to the collector.
func (u *UserData) traceRefs(markObj func(gcObj), mark func(Value)) {
	if u.Metatable != nil {
		mark(TableValue(u.Metatable))
	}
}
