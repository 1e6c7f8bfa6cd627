package store

import (
	"github.com/learnhome/client/internal/models"
)

func (s *Store) CreateInvitation(senderID, receiverID string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO invitations (sender_id, receiver_id, status) VALUES (?, ?, 'pending')`,
		senderID, receiverID,
	)
	return err
}

func (s *Store) SetInvitationStatus(senderID, receiverID, status string) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE invitations SET status = ? WHERE sender_id = ? AND receiver_id = ? AND status = 'pending'`,
		status, senderID, receiverID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) PendingInvitations(receiverID string) ([]models.Invitation, error) {
	rows, err := s.db.Query(
		`SELECT i.sender_id, u.username, i.receiver_id, i.status FROM invitations i
		 JOIN users u ON u.id = i.sender_id
		 WHERE i.receiver_id = ? AND i.status = 'pending' ORDER BY u.username`,
		receiverID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invs []models.Invitation
	for rows.Next() {
		var inv models.Invitation
		if err := rows.Scan(&inv.SenderID, &inv.SenderUsername, &inv.ReceiverID, &inv.Status); err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

func (s *Store) AddContact(a, b string) error {
	x, y := contactPair(a, b)
	_, err := s.db.Exec(`INSERT OR IGNORE INTO contacts (user_a, user_b) VALUES (?, ?)`, x, y)
	return err
}

func (s *Store) RemoveContact(a, b string) error {
	x, y := contactPair(a, b)
	_, err := s.db.Exec(`DELETE FROM contacts WHERE user_a = ? AND user_b = ?`, x, y)
	return err
}

func (s *Store) AreContacts(a, b string) (bool, error) {
	x, y := contactPair(a, b)
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM contacts WHERE user_a = ? AND user_b = ?`, x, y).Scan(&n)
	return n > 0, err
}

// Contacts lists the user's contact peers.
func (s *Store) Contacts(userID string) ([]models.User, error) {
	rows, err := s.db.Query(
		`SELECT u.id, u.username, u.firstname, u.lastname, u.email, u.photo, u.role FROM users u
		 JOIN contacts c ON (c.user_a = ? AND c.user_b = u.id) OR (c.user_b = ? AND c.user_a = u.id)
		 ORDER BY u.username`,
		userID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Firstname, &u.Lastname, &u.Email, &u.Photo, &u.Role); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// TeacherContactsOf lists the teachers connected to the given user, the set
// that supervises the user's tasks.
func (s *Store) TeacherContactsOf(userID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT u.id FROM users u
		 JOIN contacts c ON (c.user_a = ? AND c.user_b = u.id) OR (c.user_b = ? AND c.user_a = u.id)
		 WHERE u.role = 'teacher'`,
		userID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
