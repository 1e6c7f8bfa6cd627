package store

import (
	"sort"
	"sync"

	"github.com/learnhome/client/internal/models"
)

// ContactStore holds the user's contact edges and the directed invitations
// that produce them. Keys are peer user ids for contacts and
// sender|receiver pairs for invitations.
type ContactStore struct {
	mu          sync.RWMutex
	contacts    map[string]models.Contact
	invitations map[string]models.Invitation
}

func NewContactStore() *ContactStore {
	return &ContactStore{
		contacts:    make(map[string]models.Contact),
		invitations: make(map[string]models.Invitation),
	}
}

func invitationKey(senderID, receiverID string) string {
	return senderID + "|" + receiverID
}

// AddInvitation records a pending invitation. Re-adding the same pair
// overwrites, so duplicate delivery is harmless.
func (s *ContactStore) AddInvitation(inv models.Invitation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv.Status == "" {
		inv.Status = models.InvitationPending
	}
	s.invitations[invitationKey(inv.SenderID, inv.ReceiverID)] = inv
}

// ResolveInvitation flips a pending invitation to accepted or declined.
// Missing invitations are a delivery gap and resolve to a no-op.
func (s *ContactStore) ResolveInvitation(senderID, receiverID, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := invitationKey(senderID, receiverID)
	inv, ok := s.invitations[key]
	if !ok {
		return false
	}
	inv.Status = status
	s.invitations[key] = inv
	return true
}

// AddContact materializes a contact edge. A hydrated profile never degrades
// back to a placeholder if the event-payload version arrives late.
func (s *ContactStore) AddContact(user models.User, hydrated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.contacts[user.ID]; ok && existing.Hydrated && !hydrated {
		return
	}
	connected := false
	if existing, ok := s.contacts[user.ID]; ok {
		connected = existing.Connected
	}
	s.contacts[user.ID] = models.Contact{User: user, Connected: connected, Hydrated: hydrated}
}

// RemoveContact deletes the edge. Removing an absent contact is a no-op,
// not an error: applying the same removal twice must converge.
func (s *ContactStore) RemoveContact(peerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[peerID]; !ok {
		return false
	}
	delete(s.contacts, peerID)
	return true
}

// SetPresence updates the connected flag of a known contact.
func (s *ContactStore) SetPresence(peerID string, connected bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[peerID]
	if !ok {
		return false
	}
	c.Connected = connected
	s.contacts[peerID] = c
	return true
}

func (s *ContactStore) Contact(peerID string) (models.Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[peerID]
	return c, ok
}

func (s *ContactStore) Contacts() []models.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User.Username < out[j].User.Username })
	return out
}

// PendingInvitations lists invitations addressed to the given user that are
// still awaiting a response.
func (s *ContactStore) PendingInvitations(receiverID string) []models.Invitation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Invitation
	for _, inv := range s.invitations {
		if inv.ReceiverID == receiverID && inv.Status == models.InvitationPending {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SenderID < out[j].SenderID })
	return out
}

func (s *ContactStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts = make(map[string]models.Contact)
	s.invitations = make(map[string]models.Invitation)
}
