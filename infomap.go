package errbridge

import (
	"encoding/json"
	"iter"
	"log/slog"
	"strings"
	"unsafe"

	"github.com/shiwano/errbridge/growarray"
	"github.com/shiwano/errbridge/internal/alloc"
)

// InfoMapFlag records the state of an InfoMap and the programming errors
// detected by its mutating methods.
type InfoMapFlag uint32

const (
	FlagImmutable InfoMapFlag = 1 << iota
	FlagOutOfMemory
	FlagMutateImmutable
	FlagNullKey
	FlagNullValue

	programmingErrorFlags = FlagMutateImmutable | FlagNullKey | FlagNullValue
)

type (
	// InfoMap is a small string-keyed map of scalars attached to an Error for
	// structured diagnostics. Items are kept sorted by key.
	//
	// A map starts mutable and becomes immutable permanently through
	// MakeImmutable. Copying an immutable map shares it; copying a mutable map
	// deep-copies it.
	//
	// Mutating methods never report failure. Invalid arguments set flags that
	// ProgrammingErrors describes, and an allocation failure switches the map
	// to an out-of-memory state in which it reads as empty and ignores writes.
	//
	// InfoMap is not safe for concurrent use. A mutable map must stay with one
	// goroutine until it is made immutable, and copies of an immutable map
	// must not be taken or destroyed concurrently.
	//
	// A nil *InfoMap reads as an empty immutable map.
	InfoMap struct {
		items  *growarray.Array[infoItem]
		flags  InfoMapFlag
		refs   int
		static bool
	}

	infoItem struct {
		key   string
		value Value
	}
)

var (
	_ json.Marshaler = (*InfoMap)(nil)
	_ slog.LogValuer = (*InfoMap)(nil)
)

var (
	infoMapSize = int(unsafe.Sizeof(InfoMap{}))

	outOfMemoryInfoMap = &InfoMap{flags: FlagOutOfMemory, static: true}
)

// NewInfoMap returns an empty mutable map. If the map cannot be allocated it
// returns the shared out-of-memory map instead, which is never nil.
func NewInfoMap() *InfoMap {
	if !alloc.Alloc(infoMapSize) {
		return outOfMemoryInfoMap
	}
	items, err := growarray.New[infoItem]()
	if err != nil {
		alloc.Free(infoMapSize)
		return outOfMemoryInfoMap
	}
	return &InfoMap{items: items, refs: 1}
}

// OutOfMemoryInfoMap returns the shared out-of-memory map.
func OutOfMemoryInfoMap() *InfoMap {
	return outOfMemoryInfoMap
}

// Destroy releases one reference to m.
func (m *InfoMap) Destroy() {
	if m == nil || m.static {
		return
	}
	m.refs--
	if m.refs > 0 {
		return
	}
	m.clearItems()
	m.items.Destroy()
	alloc.Free(infoMapSize)
}

// Copy shares m if it is immutable and deep-copies it otherwise.
func (m *InfoMap) Copy() *InfoMap {
	if m == nil {
		return nil
	}
	if m.static {
		return m
	}
	if m.flags&FlagImmutable != 0 {
		m.refs++
		return m
	}
	return m.deepCopy()
}

// MutableCopy always returns a new mutable map holding m's items.
func (m *InfoMap) MutableCopy() *InfoMap {
	if m == nil {
		return nil
	}
	if m.IsOutOfMemory() {
		return outOfMemoryInfoMap
	}
	return m.deepCopy()
}

// ImmutableCopy returns an immutable map holding m's items, sharing m when
// it is already immutable.
func (m *InfoMap) ImmutableCopy() *InfoMap {
	c := m.Copy()
	c.MakeImmutable()
	return c
}

// MakeImmutable freezes m. It is idempotent and cannot be undone.
func (m *InfoMap) MakeImmutable() {
	if m == nil || m.static {
		return
	}
	m.flags |= FlagImmutable
}

// IsMutable reports whether m accepts writes.
func (m *InfoMap) IsMutable() bool {
	if m == nil || m.static {
		return false
	}
	return m.flags&FlagImmutable == 0
}

// MakeOutOfMemory drops all items of a mutable map and puts it in the
// out-of-memory state. On an immutable map it records a mutation attempt.
func (m *InfoMap) MakeOutOfMemory() {
	if m == nil || m.static {
		return
	}
	if m.flags&FlagImmutable != 0 {
		m.flags |= FlagMutateImmutable
		return
	}
	if m.flags&FlagOutOfMemory != 0 {
		return
	}
	m.switchToOutOfMemory()
}

// IsOutOfMemory reports whether m lost its contents to an allocation failure.
func (m *InfoMap) IsOutOfMemory() bool {
	return m != nil && m.flags&FlagOutOfMemory != 0
}

// Flags returns the state and programming error flags of m.
func (m *InfoMap) Flags() InfoMapFlag {
	if m == nil {
		return FlagImmutable
	}
	return m.flags
}

// HasProgrammingErrors reports whether any mutating call was given invalid
// arguments or targeted an immutable map.
func (m *InfoMap) HasProgrammingErrors() bool {
	return m != nil && m.flags&programmingErrorFlags != 0
}

// ProgrammingErrors describes the recorded programming errors, or returns
// an empty string if there are none.
func (m *InfoMap) ProgrammingErrors() string {
	if !m.HasProgrammingErrors() {
		return ""
	}
	var msgs []string
	if m.flags&FlagMutateImmutable != 0 {
		msgs = append(msgs, "Attempt(s) made to mutate immutable map.")
	}
	if m.flags&FlagNullKey != 0 {
		msgs = append(msgs, "Null key(s) passed to mutating function(s).")
	}
	if m.flags&FlagNullValue != 0 {
		msgs = append(msgs, "Null value(s) passed to mutating function(s).")
	}
	return strings.Join(msgs, " ")
}

// Len returns the number of items.
func (m *InfoMap) Len() int {
	if m == nil || m.IsOutOfMemory() {
		return 0
	}
	return m.items.Len()
}

// IsEmpty reports whether m has no items.
func (m *InfoMap) IsEmpty() bool {
	return m.Len() == 0
}

// Reserve makes room for hint items. A failure is ignored.
func (m *InfoMap) Reserve(hint int) {
	if !m.IsMutable() || m.IsOutOfMemory() {
		return
	}
	m.items.Reserve(hint)
}

// Set stores value under key. An empty key or an invalid value is recorded
// as a programming error and ignored.
func (m *InfoMap) Set(key string, value Value) {
	if m == nil || m.static {
		return
	}
	if key == "" {
		m.flags |= FlagNullKey
		return
	}
	if !value.IsValid() {
		m.flags |= FlagNullValue
		return
	}
	if m.flags&FlagImmutable != 0 {
		m.flags |= FlagMutateImmutable
		return
	}
	if m.flags&FlagOutOfMemory != 0 {
		return
	}
	if !m.setKey(key, value) {
		m.switchToOutOfMemory()
	}
}

func (m *InfoMap) SetString(key, value string) { m.Set(key, StringValue(value)) }
func (m *InfoMap) SetBool(key string, value bool) { m.Set(key, BoolValue(value)) }
func (m *InfoMap) SetI64(key string, value int64) { m.Set(key, I64Value(value)) }
func (m *InfoMap) SetU64(key string, value uint64) { m.Set(key, U64Value(value)) }
func (m *InfoMap) SetF64(key string, value float64) { m.Set(key, F64Value(value)) }

// Remove deletes key if present.
func (m *InfoMap) Remove(key string) {
	if !m.checkMutation(key) {
		return
	}
	if pos, ok := growarray.Search(m.items, key, compareItemKey); ok {
		freeItem(m.items.At(pos))
		m.items.Erase(pos)
	}
}

// Clear deletes all items.
func (m *InfoMap) Clear() {
	if m == nil || m.static {
		return
	}
	if m.flags&FlagImmutable != 0 {
		m.flags |= FlagMutateImmutable
		return
	}
	if m.flags&FlagOutOfMemory != 0 {
		return
	}
	m.clearItems()
}

// Get returns the value stored under key.
func (m *InfoMap) Get(key string) (Value, bool) {
	if m.IsEmpty() {
		return Value{}, false
	}
	pos, ok := growarray.Search(m.items, key, compareItemKey)
	if !ok {
		return Value{}, false
	}
	return m.items.At(pos).value, true
}

// GetType returns the type of the value under key, or TypeInvalid.
func (m *InfoMap) GetType(key string) ValueType {
	v, _ := m.Get(key)
	return v.Type()
}

// HasKey reports whether key is present.
func (m *InfoMap) HasKey(key string) bool {
	_, ok := m.Get(key)
	return ok
}

func (m *InfoMap) GetString(key string) (string, bool) {
	v, _ := m.Get(key)
	return v.AsString()
}

func (m *InfoMap) GetBool(key string) (bool, bool) {
	v, _ := m.Get(key)
	return v.AsBool()
}

func (m *InfoMap) GetI64(key string) (int64, bool) {
	v, _ := m.Get(key)
	return v.AsI64()
}

func (m *InfoMap) GetU64(key string) (uint64, bool) {
	v, _ := m.Get(key)
	return v.AsU64()
}

func (m *InfoMap) GetF64(key string) (float64, bool) {
	v, _ := m.Get(key)
	return v.AsF64()
}

// All returns an iterator over the items in ascending key order.
func (m *InfoMap) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if m.IsEmpty() {
			return
		}
		for _, it := range m.items.All() {
			if !yield(it.key, it.value) {
				return
			}
		}
	}
}

func (m *InfoMap) MarshalJSON() ([]byte, error) {
	items := make(map[string]any, m.Len())
	for k, v := range m.All() {
		items[k] = v.Any()
	}
	return json.Marshal(items)
}

func (m *InfoMap) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, m.Len())
	for k, v := range m.All() {
		attrs = append(attrs, slog.Any(k, v.Any()))
	}
	return slog.GroupValue(attrs...)
}

func (m *InfoMap) checkMutation(key string) bool {
	if m == nil || m.static {
		return false
	}
	if key == "" {
		m.flags |= FlagNullKey
		return false
	}
	if m.flags&FlagImmutable != 0 {
		m.flags |= FlagMutateImmutable
		return false
	}
	return m.flags&FlagOutOfMemory == 0
}

func (m *InfoMap) setKey(key string, value Value) bool {
	pos, found := growarray.Search(m.items, key, compareItemKey)
	if found {
		it := m.items.At(pos)
		if !alloc.Alloc(len(key) + value.storageSize()) {
			return false
		}
		freeItem(it)
		it.value = value
		return true
	}

	if !alloc.Alloc(len(key) + value.storageSize()) {
		return false
	}
	if !m.items.Insert(pos, infoItem{key: strings.Clone(key), value: value}) {
		alloc.Free(len(key) + value.storageSize())
		return false
	}
	return true
}

func (m *InfoMap) deepCopy() *InfoMap {
	if m.IsOutOfMemory() {
		return outOfMemoryInfoMap
	}
	c := NewInfoMap()
	if c.IsOutOfMemory() {
		return c
	}
	if !c.items.Reserve(m.items.Len()) {
		c.Destroy()
		return outOfMemoryInfoMap
	}
	for _, it := range m.items.All() {
		if !alloc.Alloc(len(it.key) + it.value.storageSize()) {
			c.Destroy()
			return outOfMemoryInfoMap
		}
		if !c.items.Append(it) {
			freeItem(&it)
			c.Destroy()
			return outOfMemoryInfoMap
		}
	}
	return c
}

func (m *InfoMap) switchToOutOfMemory() {
	m.clearItems()
	m.items.Destroy()
	m.flags |= FlagOutOfMemory
}

func (m *InfoMap) clearItems() {
	for i := range m.items.Len() {
		freeItem(m.items.At(i))
	}
	m.items.Clear()
}

func freeItem(it *infoItem) {
	alloc.Free(len(it.key) + it.value.storageSize())
}

func compareItemKey(it infoItem, key string) int {
	return strings.Compare(it.key, key)
}
