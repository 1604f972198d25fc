package history

// ConversationIDKey is the key the bound conversation id is stored under
const ConversationIDKey = "conversationId"

// Slot stores a single conversation id in a KV
type Slot struct {
	kv  KV
	key string
}

// NewSlot creates a Slot over the well-known conversation id key
func NewSlot(kv KV) *Slot {
	return &Slot{kv: kv, key: ConversationIDKey}
}

// Load returns the stored id, or "" when the slot is empty
func (s *Slot) Load() (string, error) {
	v, ok, err := s.kv.Get(s.key)
	if err != nil || !ok {
		return "", err
	}
	return v, nil
}

// Save overwrites the stored id
func (s *Slot) Save(id string) error {
	if id == "" {
		return s.Clear()
	}
	return s.kv.Set(s.key, id)
}

// Clear empties the slot
func (s *Slot) Clear() error {
	return s.kv.Delete(s.key)
}
