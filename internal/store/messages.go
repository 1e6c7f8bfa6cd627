package store

import (
	"sort"
	"sync"

	"github.com/learnhome/client/internal/models"
)

// ThreadKey identifies a conversation by its unordered pair of user ids.
type ThreadKey string

func Thread(a, b string) ThreadKey {
	if a > b {
		a, b = b, a
	}
	return ThreadKey(a + "|" + b)
}

// MessageStore holds per-thread message histories plus the unread counters
// refreshed from the server. At most one thread is "active" (open in the UI);
// messages arriving for the active thread are stored already read.
type MessageStore struct {
	mu           sync.RWMutex
	threads      map[ThreadKey][]models.Message
	active       ThreadKey
	unreadTotal  int
	unreadThread map[ThreadKey]int
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		threads:      make(map[ThreadKey][]models.Message),
		unreadThread: make(map[ThreadKey]int),
	}
}

func (s *MessageStore) SetActiveThread(a, b string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = Thread(a, b)
}

func (s *MessageStore) ClearActiveThread() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = ""
}

func (s *MessageStore) ActiveThread() ThreadKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Append stores a message in its thread. Duplicate ids are dropped so a
// transport retry cannot double-count. Returns whether the message was
// inserted and whether its thread was active at the time.
func (s *MessageStore) Append(msg models.Message) (inserted, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Thread(msg.SenderID, msg.ReceiverID)
	for _, m := range s.threads[key] {
		if m.ID == msg.ID {
			return false, key == s.active
		}
	}
	if key == s.active {
		msg.Read = true
	}
	s.threads[key] = append(s.threads[key], msg)
	return true, key == s.active
}

// ReplaceThread rehydrates a whole thread from a REST response.
func (s *MessageStore) ReplaceThread(key ThreadKey, msgs []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[key] = append([]models.Message(nil), msgs...)
}

func (s *MessageStore) Messages(key ThreadKey) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := append([]models.Message(nil), s.threads[key]...)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].SentAt.Before(msgs[j].SentAt) })
	return msgs
}

func (s *MessageStore) SetUnreadTotal(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unreadTotal = n
}

func (s *MessageStore) UnreadTotal() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unreadTotal
}

func (s *MessageStore) SetThreadUnread(key ThreadKey, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unreadThread[key] = n
}

func (s *MessageStore) ThreadUnread(key ThreadKey) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unreadThread[key]
}

func (s *MessageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads = make(map[ThreadKey][]models.Message)
	s.unreadThread = make(map[ThreadKey]int)
	s.unreadTotal = 0
	s.active = ""
}
