package value

// Member is one key/value pair of a mapping. YAML allows non-string keys, so
// keys are values too; the validator reports them.
type Member struct {
	Key   Value
	Value Value
}

// Map is an insertion-ordered mapping.
type Map struct {
	members []Member
	index   map[string]int
}

func NewMap() *Map {
	return &Map{index: map[string]int{}}
}

// Set appends key, or replaces the value in place when key is already present.
func (m *Map) Set(key, val Value) {
	if id, ok := scalarID(key); ok {
		if i, found := m.index[id]; found {
			m.members[i].Value = val
			return
		}
		m.index[id] = len(m.members)
		m.members = append(m.members, Member{Key: key, Value: val})
		return
	}
	for i := range m.members {
		if m.members[i].Key.Equal(key) {
			m.members[i].Value = val
			return
		}
	}
	m.members = append(m.members, Member{Key: key, Value: val})
}

func (m *Map) SetString(key string, val Value) { m.Set(String(key), val) }

// Get looks up a string key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	id, _ := scalarID(String(key))
	i, ok := m.index[id]
	if !ok {
		return Value{}, false
	}
	return m.members[i].Value, true
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.members)
}

// Members returns the pairs in insertion order.
func (m *Map) Members() []Member {
	if m == nil {
		return nil
	}
	out := make([]Member, len(m.members))
	copy(out, m.members)
	return out
}

func (m *Map) Clone() *Map {
	out := &Map{index: make(map[string]int, m.Len())}
	if m == nil {
		return out
	}
	out.members = make([]Member, len(m.members))
	copy(out.members, m.members)
	for k, v := range m.index {
		out.index[k] = v
	}
	return out
}

func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	for i := range m.members {
		a, b := m.members[i], o.members[i]
		if !a.Key.Equal(b.Key) || !a.Value.Equal(b.Value) {
			return false
		}
	}
	return true
}

func scalarID(k Value) (string, bool) {
	switch k.kind {
	case KindNull:
		return "n:", true
	case KindBool:
		if k.b {
			return "b:true", true
		}
		return "b:false", true
	case KindNumber:
		return "d:" + k.num.Lit, true
	case KindString:
		return "s:" + k.str, true
	}
	return "", false
}
