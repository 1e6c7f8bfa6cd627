package store

import (
	"github.com/learnhome/client/internal/models"
)

func (s *Store) CreateDemand(d models.TeachingDemand) error {
	_, err := s.db.Exec(
		`INSERT INTO demands (id, sender_id, receiver_id, sent, accepted, cancelled) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.SenderID, d.ReceiverID, d.Sent, d.Accepted, d.Cancelled,
	)
	return err
}

func (s *Store) GetDemand(id string) (models.TeachingDemand, error) {
	var d models.TeachingDemand
	err := s.db.QueryRow(
		`SELECT id, sender_id, receiver_id, sent, accepted, cancelled FROM demands WHERE id = ?`,
		id,
	).Scan(&d.ID, &d.SenderID, &d.ReceiverID, &d.Sent, &d.Accepted, &d.Cancelled)
	return d, err
}

// HasActiveDemand reports whether the student already has a non-cancelled
// demand, which blocks sending another.
func (s *Store) HasActiveDemand(senderID string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM demands WHERE sender_id = ? AND cancelled = FALSE`,
		senderID,
	).Scan(&n)
	return n > 0, err
}

// AcceptDemand marks one demand accepted and cancels the same student's
// other pending demands. Returns the ids of the demands it cancelled.
func (s *Store) AcceptDemand(id string) ([]string, error) {
	d, err := s.GetDemand(id)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE demands SET accepted = TRUE, cancelled = FALSE WHERE id = ?`, id); err != nil {
		return nil, err
	}

	rows, err := tx.Query(
		`SELECT id FROM demands WHERE sender_id = ? AND id != ? AND accepted = FALSE AND cancelled = FALSE`,
		d.SenderID, id,
	)
	if err != nil {
		return nil, err
	}
	var cancelled []string
	for rows.Next() {
		var otherID string
		if err := rows.Scan(&otherID); err != nil {
			rows.Close()
			return nil, err
		}
		cancelled = append(cancelled, otherID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(
		`UPDATE demands SET cancelled = TRUE WHERE sender_id = ? AND id != ? AND accepted = FALSE`,
		d.SenderID, id,
	); err != nil {
		return nil, err
	}

	return cancelled, tx.Commit()
}

func (s *Store) CancelDemand(id string) error {
	_, err := s.db.Exec(`UPDATE demands SET cancelled = TRUE WHERE id = ?`, id)
	return err
}

// DemandsFor lists demands the user sent or received.
func (s *Store) DemandsFor(userID string) ([]models.TeachingDemand, error) {
	rows, err := s.db.Query(
		`SELECT id, sender_id, receiver_id, sent, accepted, cancelled FROM demands
		 WHERE sender_id = ? OR receiver_id = ? ORDER BY sent`,
		userID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var demands []models.TeachingDemand
	for rows.Next() {
		var d models.TeachingDemand
		if err := rows.Scan(&d.ID, &d.SenderID, &d.ReceiverID, &d.Sent, &d.Accepted, &d.Cancelled); err != nil {
			return nil, err
		}
		demands = append(demands, d)
	}
	return demands, rows.Err()
}
