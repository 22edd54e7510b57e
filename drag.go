package menu

import (
	"errors"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

// dragTimeout expires drag sessions that never complete. A stray completion
// arriving after the deadline is rejected defensively.
const dragTimeout = 10 * time.Second

const (
	dragActive = iota
	dragCompleted
	dragCancelled
	dragExpired
)

var (
	// ErrDragForbidden rejects drags starting on a cell whose item forbids
	// them.
	ErrDragForbidden = errors.New("menu: item forbids dragging")

	// ErrDragExpired rejects completions of a timed-out or missing session.
	ErrDragExpired = errors.New("menu: drag session expired")

	// ErrDuplicationGuard rejects a completion whose region contents no
	// longer match the state the drag started from.
	ErrDuplicationGuard = errors.New("menu: drag checksum mismatch")
)

// DragSession tracks one in-flight drag transaction for a view. The grid
// region that permits dragging is fingerprinted at drag start; completion
// recomputes the fingerprint and rejects the transaction when they diverge,
// so items injected mid-drag can never be duplicated into the result.
type DragSession struct {
	view      *View
	startedAt time.Time
	deadlineT time.Time
	slots     []int
	checksum  uint64

	state  atomic.Uint32
	expiry *deadline
}

// Slots returns the draggable region the session covers.
func (d *DragSession) Slots() []int {
	return d.slots
}

// active reports whether the session can still complete.
func (d *DragSession) active() bool {
	return d.state.Load() == dragActive && time.Now().Before(d.deadlineT)
}

// cancel ends the session without applying anything.
func (d *DragSession) cancel() {
	if d.state.CompareAndSwap(dragActive, dragCancelled) && d.expiry != nil {
		d.expiry.Cancel()
	}
}

// expire marks a timed-out session.
func (d *DragSession) expire() {
	d.state.CompareAndSwap(dragActive, dragExpired)
}

// BeginDrag starts a drag transaction on a cell. It fails when the cell's
// item forbids dragging. An already-active session is cancelled first.
func (v *View) BeginDrag(slot int) (*DragSession, error) {
	if v.closed.Load() {
		return nil, ErrDragExpired
	}

	if d := v.dragSession(); d != nil {
		d.cancel()
	}

	def := v.defAt(slot)
	if def == nil || !def.AllowDrag {
		return nil, ErrDragForbidden
	}

	region := v.draggableRegion()
	now := time.Now()
	d := &DragSession{
		view:      v,
		startedAt: now,
		deadlineT: now.Add(dragTimeout),
		slots:     region,
		checksum:  v.regionChecksum(region),
	}
	if sch := v.manager.scheduler; sch != nil {
		d.expiry = sch.Schedule(d.deadlineT, d.expire)
	}

	v.setDragSession(d)
	return d, nil
}

// CancelDrag abandons the active drag session, if any.
func (v *View) CancelDrag() {
	if d := v.dragSession(); d != nil {
		d.cancel()
		v.setDragSession(nil)
	}
}

// CompleteDrag validates and applies a drag transaction. placements carries
// the final contents the drag claims for the slots it touched (nil values
// empty a slot). A checksum mismatch means the region changed under the
// session: the transaction is rejected and the cells reverted; no error
// escapes into the click pipeline beyond the returned value.
func (v *View) CompleteDrag(placements map[int]*CompiledItem) error {
	d := v.dragSession()
	v.setDragSession(nil)
	if d == nil || !d.active() {
		if d != nil {
			d.expire()
		}
		return ErrDragExpired
	}
	if d.expiry != nil {
		d.expiry.Cancel()
	}

	if v.regionChecksum(d.slots) != d.checksum {
		d.state.Store(dragCancelled)
		v.revertCells(d.slots)
		return ErrDuplicationGuard
	}

	for slot, it := range placements {
		if !containsSlot(d.slots, slot) {
			d.state.Store(dragCancelled)
			v.revertCells(d.slots)
			return ErrDuplicationGuard
		}
		v.writeCell(slot, it)
	}

	d.state.Store(dragCompleted)
	return nil
}

// draggableRegion collects every cell whose item permits dragging.
func (v *View) draggableRegion() []int {
	var region []int
	for slot := 0; slot < v.menu.Size; slot++ {
		if def := v.defAt(slot); def != nil && def.AllowDrag {
			region = append(region, slot)
		}
	}
	return region
}

// regionChecksum fingerprints the region's contents, order-independent of
// map iteration.
func (v *View) regionChecksum(slots []int) uint64 {
	sorted := make([]int, len(slots))
	copy(sorted, slots)
	sort.Ints(sorted)

	v.cellMu.RLock()
	defer v.cellMu.RUnlock()

	d := xxhash.New()
	for _, slot := range sorted {
		_, _ = d.WriteString(strconv.Itoa(slot))
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(v.cells[slot].fingerprint())
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

func containsSlot(slots []int, slot int) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}
