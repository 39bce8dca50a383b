package vm

// gcColor is embedded in every collectible heap object. Tri-color
// invariant: after any collection completes, no black
// object references a white object.
type gcColor struct {
	mark colorMark
	next gcObj // intrusive link in the collector's all-objects list
}

func (c *gcColor) color() *gcColor { return c }

type colorMark byte

const (
	white colorMark = iota
	gray
	black
)

// gcPhase is the collector's current position in its cycle.
type gcPhase byte

const (
	phaseIdle gcPhase = iota
	phaseMark
	phasePropagate
	phaseSweep
)

// Collector implements tri-color incremental mark-and-sweep over every
// heap object a State has allocated. It never moves objects; a Value's heap pointer is stable for its lifetime.
type Collector struct {
	all   gcObj // head of the intrusive all-objects list
	gray  []gcObj
	phase gcPhase

	totalBytes     int64
	threshold      int64
	pauseMul       float64 // live_bytes * pauseMul sets the next threshold
	stepMultiplier float64

	sweepCursor gcObj // remaining objects to examine in the current sweep pass
	sweepKept   gcObj // objects retained so far in the current sweep pass

	roots func() []Value // supplied by State: stack, frames, globals, upvalues
}

const defaultPauseMultiplier = 2.0
const defaultStepMultiplier = 2.0
const defaultGCThreshold = 1 << 20

// NewCollector constructs a Collector. roots is called at the start of
// every mark phase to obtain the current root set.
func NewCollector(roots func() []Value) *Collector {
	return &Collector{
		phase:          phaseIdle,
		threshold:      defaultGCThreshold,
		pauseMul:       defaultPauseMultiplier,
		stepMultiplier: defaultStepMultiplier,
		roots:          roots,
	}
}

// SetGCPause configures the pause multiplier applied to live bytes when
// computing the next collection threshold (original_source's
// setGCPause, surfaced per SPEC_FULL.md §5).
func (c *Collector) SetGCPause(mul float64) { c.pauseMul = mul }

// SetGCStepMultiplier configures how much work an incremental Step performs
// relative to allocation (original_source's setGCStepMultiplier).
func (c *Collector) SetGCStepMultiplier(mul float64) { c.stepMultiplier = mul }

// register links a newly allocated object into the all-objects list as
// white, ready to be traced by the next mark phase.
func (c *Collector) register(o gcObj) {
	col := o.color()
	col.mark = white
	col.next = c.all
	c.all = o
	c.totalBytes += 1 // object-count proxy for "bytes"
}

// Notify triggers an incremental step once totalBytes crosses the
// threshold. Allocation does not call it; steps run only when a caller
// invokes Notify, Step or FullCollect.
func (c *Collector) Notify() {
	if c.totalBytes < c.threshold {
		return
	}
	c.Step()
}

// barrier implements the write barrier: whenever a black
// object is modified to reference a white object, the white object is
// marked gray (the "forward" choice). Callers invoke this from every
// mutator write to a table, closure or upvalue.
func (c *Collector) barrier(owner gcObj, ref Value) {
	if owner == nil || owner.color().mark != black {
		return
	}
	c.markValue(ref)
}

func (c *Collector) markValue(v Value) {
	if v.obj == nil {
		return
	}
	c.markObj(v.obj)
}

func (c *Collector) markObj(o gcObj) {
	col := o.color()
	if col.mark != white {
		return
	}
	col.mark = gray
	c.gray = append(c.gray, o)
}

// FullCollect runs mark-roots, propagate and sweep to completion
// synchronously.
func (c *Collector) FullCollect() {
	c.beginMark()
	for len(c.gray) > 0 {
		c.propagateOne()
	}
	c.sweepAll()
}

// beginSweep starts a fresh sweep pass over the entire all-objects list.
func (c *Collector) beginSweep() {
	c.phase = phaseSweep
	c.sweepCursor = c.all
	c.sweepKept = nil
}

func (c *Collector) beginMark() {
	c.phase = phaseMark
	c.gray = c.gray[:0]
	for _, r := range c.roots() {
		c.markValue(r)
	}
	c.phase = phasePropagate
}

// propagateOne pops one gray object, blackens it, and grays every white
// object it references.
func (c *Collector) propagateOne() {
	n := len(c.gray)
	o := c.gray[n-1]
	c.gray = c.gray[:n-1]
	o.color().mark = black

	switch obj := o.(type) {
	case *Table:
		obj.traceRefs(c.markObj, c.markValue)
	case *Closure:
		obj.traceRefs(c.markObj, c.markValue)
	case *Proto:
		obj.traceRefs(c.markObj, c.markValue)
	case *Upvalue:
		c.markValue(obj.Get())
	case *UserData:
		obj.traceRefs(c.markObj, c.markValue)
	}
}

// sweepStep walks up to n objects from the sweep cursor, moving reachable
// ones onto the retained list and dropping unreachable ones. It returns
// true once the cursor has consumed the whole all-objects list, at which
// point it finalizes the cycle: the retained list becomes c.all and the
// next threshold is computed from the surviving count.
func (c *Collector) sweepStep(n int) bool {
	for i := 0; i < n && c.sweepCursor != nil; i++ {
		o := c.sweepCursor
		col := o.color()
		next := col.next
		if col.mark == white {
			// unreachable: drop from the list, let Go's own GC reclaim it
		} else {
			col.mark = white
			col.next = c.sweepKept
			c.sweepKept = o
		}
		c.sweepCursor = next
	}
	if c.sweepCursor != nil {
		return false
	}
	c.all = c.sweepKept
	c.sweepKept = nil
	c.phase = phaseIdle
	c.totalBytes = 0
	c.threshold = int64(float64(c.countLive()) * c.pauseMul)
	if c.threshold < defaultGCThreshold {
		c.threshold = defaultGCThreshold
	}
	return true
}

// sweepAll drives a sweep pass to completion synchronously, starting a
// fresh pass first if one isn't already underway.
func (c *Collector) sweepAll() {
	if c.phase != phaseSweep {
		c.beginSweep()
	}
	const wholeHeap = 1 << 30
	for !c.sweepStep(wholeHeap) {
	}
}

func (c *Collector) countLive() int64 {
	var n int64
	for o := c.all; o != nil; o = o.color().next {
		n++
	}
	return n
}

// Step performs one bounded unit of incremental work and advances the
// phase when that unit completes. Idle -> Mark starts a new
// cycle; Propagate drains a bounded slice of the gray queue; Sweep walks a
// bounded slice of the object list.
func (c *Collector) Step() {
	unit := int(c.stepMultiplier * 64)
	if unit < 1 {
		unit = 1
	}

	switch c.phase {
	case phaseIdle:
		c.beginMark()
	case phaseMark, phasePropagate:
		for i := 0; i < unit && len(c.gray) > 0; i++ {
			c.propagateOne()
		}
		if len(c.gray) == 0 {
			c.beginSweep()
		}
	case phaseSweep:
		c.sweepStep(unit)
	}
}
