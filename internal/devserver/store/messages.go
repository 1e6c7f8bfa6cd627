package store

import (
	"github.com/learnhome/client/internal/models"
)

func (s *Store) SaveMessage(m models.Message) error {
	_, err := s.db.Exec(
		`INSERT INTO messages (id, sender_id, receiver_id, content, files, sent_at, read) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.SenderID, m.ReceiverID, m.Content, marshalFiles(m.Files), m.SentAt, m.Read,
	)
	return err
}

// UnreadTotal counts unread messages addressed to the user across threads.
func (s *Store) UnreadTotal(userID string) (int, error) {
	var total int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM messages WHERE receiver_id = ? AND read = FALSE`,
		userID,
	).Scan(&total)
	return total, err
}

// Conversation returns the full thread between two users, oldest first, plus
// how many of its messages the given reader has not read.
func (s *Store) Conversation(readerID, peerID string) ([]models.Message, int, error) {
	rows, err := s.db.Query(
		`SELECT id, sender_id, receiver_id, content, files, sent_at, read FROM messages
		 WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		 ORDER BY sent_at`,
		readerID, peerID, peerID, readerID,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var msgs []models.Message
	unread := 0
	for rows.Next() {
		var m models.Message
		var files string
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &files, &m.SentAt, &m.Read); err != nil {
			return nil, 0, err
		}
		m.Files = unmarshalFiles(files)
		if m.ReceiverID == readerID && !m.Read {
			unread++
		}
		msgs = append(msgs, m)
	}
	return msgs, unread, rows.Err()
}

// MarkThreadRead flips every message from peer to reader to read.
func (s *Store) MarkThreadRead(readerID, peerID string) error {
	_, err := s.db.Exec(
		`UPDATE messages SET read = TRUE WHERE receiver_id = ? AND sender_id = ? AND read = FALSE`,
		readerID, peerID,
	)
	return err
}
