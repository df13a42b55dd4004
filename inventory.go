package savedata

import (
	"slices"

	"go.uber.org/zap"
)

// Record is an identity-bearing element of an Inventory. An id <= 0 means
// the record has not been assigned one yet.
type Record interface {
	RecordID() int
	SetRecordID(id int)

	IsEquipped() bool
	RecordLevel() int
	RecordRarity() int
	RecordSlot() int
}

// InventoryRecord is the stock Record implementation.
type InventoryRecord struct {
	ID       int  `msgpack:"id" json:"id"`
	BaseID   int  `msgpack:"b" json:"base_id"`
	Rarity   int  `msgpack:"r" json:"rarity"`
	Level    int  `msgpack:"l" json:"level"`
	Quantity int  `msgpack:"q" json:"quantity"`
	Equipped bool `msgpack:"eq,omitempty" json:"equipped,omitempty"`
	Slot     int  `msgpack:"s,omitempty" json:"slot,omitempty"`
}

func (r *InventoryRecord) RecordID() int { return r.ID }
func (r *InventoryRecord) SetRecordID(id int) { r.ID = id }
func (r *InventoryRecord) IsEquipped() bool { return r.Equipped }
func (r *InventoryRecord) RecordLevel() int { return r.Level }
func (r *InventoryRecord) RecordRarity() int { return r.Rarity }
func (r *InventoryRecord) RecordSlot() int { return r.Slot }

// Inventory is a group managing identity-bearing records.
//
// Ids are allocated from a running counter; ids of deleted records go to a
// recycle pool and are reused most-recently-deleted first. Freshly allocated
// ids are remembered as "buzz" ids (new, unseen) until MarkSeen.
//
// The records, the counter, the recycle pool and the buzz set are child
// leaves, persisted like any other part of the tree.
type Inventory[T Record] struct {
	Group
	records  *List[T]
	lastID   *Value[int]
	recycled *List[int]
	buzz     *List[int]
}

func NewInventory[T Record](id string) *Inventory[T] {
	inv := &Inventory[T]{
		records:  NewList[T]("items"),
		lastID:   NewInt("last_id", 0),
		recycled: NewList[int]("deleted_ids"),
		buzz:     NewList[int]("buzz_ids"),
	}
	inv.Init(id, inv.records, inv.lastID, inv.recycled, inv.buzz)
	return inv
}

func (inv *Inventory[T]) Len() int { return inv.records.Len() }

// Records returns the records in their current order.
func (inv *Inventory[T]) Records() []T { return inv.records.Items() }

// LastID returns the last id issued by the counter.
func (inv *Inventory[T]) LastID() int { return inv.lastID.Get() }

func (inv *Inventory[T]) indexOf(id int) int {
	if id <= 0 {
		return -1
	}
	return inv.records.IndexFunc(func(r T) bool { return r.RecordID() == id })
}

func (inv *Inventory[T]) GetByID(id int) (T, bool) {
	i := inv.indexOf(id)
	if i < 0 {
		var zero T
		return zero, false
	}
	return inv.records.At(i), true
}

// Insert adds rec, allocating an id if it has none. Returns false (and logs)
// when rec carries an id that is already taken.
func (inv *Inventory[T]) Insert(rec T) bool {
	id := rec.RecordID()
	if id > 0 {
		if inv.indexOf(id) >= 0 {
			inv.logger().Warn("inventory id already taken", zap.String("key", inv.displayKey()), zap.Int("id", id))
			return false
		}
		inv.recycled.RemoveFunc(func(r int) bool { return r == id })
		if id > inv.lastID.Get() {
			inv.lastID.Set(id)
		}
	} else {
		id = inv.allocate()
		rec.SetRecordID(id)
		inv.buzz.Append(id)
	}
	inv.records.Append(rec)
	return true
}

func (inv *Inventory[T]) allocate() int {
	if id, ok := inv.recycled.Pop(); ok {
		return id
	}
	id := inv.lastID.Get() + 1
	inv.lastID.Set(id)
	return id
}

// Update replaces the record having the same id as rec.
func (inv *Inventory[T]) Update(rec T) bool {
	i := inv.indexOf(rec.RecordID())
	if i < 0 {
		inv.logger().Warn("cannot update unknown inventory id", zap.String("key", inv.displayKey()), zap.Int("id", rec.RecordID()))
		return false
	}
	inv.records.SetAt(i, rec)
	return true
}

// Delete removes the record and recycles its id.
func (inv *Inventory[T]) Delete(id int) bool {
	i := inv.indexOf(id)
	if i < 0 {
		inv.logger().Warn("cannot delete unknown inventory id", zap.String("key", inv.displayKey()), zap.Int("id", id))
		return false
	}
	inv.records.RemoveAt(i)
	inv.recycled.Append(id)
	inv.buzz.RemoveFunc(func(b int) bool { return b == id })
	return true
}

// IsNew reports whether id was allocated and not yet marked seen.
func (inv *Inventory[T]) IsNew(id int) bool {
	return inv.buzz.IndexFunc(func(b int) bool { return b == id }) >= 0
}

func (inv *Inventory[T]) BuzzIDs() []int { return inv.buzz.Items() }

func (inv *Inventory[T]) MarkSeen(id int) bool {
	return inv.buzz.RemoveFunc(func(b int) bool { return b == id }) > 0
}

func (inv *Inventory[T]) ClearBuzz() {
	if inv.buzz.Len() > 0 {
		inv.buzz.Clear()
	}
}

// MarkDirty must be called after mutating a record in place (through a
// pointer obtained from GetByID or Records).
func (inv *Inventory[T]) MarkDirty() {
	inv.records.MarkDirty()
}

// Sort orders the records: equipped first, then by the criterion, then by
// the remaining criteria in level, rarity, slot order.
func (inv *Inventory[T]) Sort(by SortBy) {
	if inv.records.Len() < 2 {
		return
	}
	inv.records.SortStableFunc(recordComparator[T](by))
}

// Filter returns the records matching f.
func (inv *Inventory[T]) Filter(f func(T) bool) []T {
	var out []T
	for _, r := range inv.records.items {
		if f(r) {
			out = append(out, r)
		}
	}
	return slices.Clip(out)
}
