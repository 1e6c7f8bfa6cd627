package store

import (
	"time"

	"github.com/learnhome/client/internal/models"
)

func (s *Store) CreateEvent(ev models.CalendarEvent) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO events (id, title, description, beginning, end_time, organizer_id) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Title, ev.Description, ev.Beginning, ev.End, ev.OrganizerID,
	); err != nil {
		return err
	}
	for _, guest := range ev.Guests {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO event_participants (event_id, user_id, accepted) VALUES (?, ?, FALSE)`,
			ev.ID, guest,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) UpdateEvent(ev models.CalendarEvent) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE events SET title = ?, description = ?, beginning = ?, end_time = ? WHERE id = ?`,
		ev.Title, ev.Description, ev.Beginning, ev.End, ev.ID,
	); err != nil {
		return err
	}
	// Guests may be added on modification; existing responses survive.
	for _, guest := range ev.Guests {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO event_participants (event_id, user_id, accepted) VALUES (?, ?, FALSE)`,
			ev.ID, guest,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) DeleteEvent(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM event_participants WHERE event_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM events WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// SetParticipation records a guest's response. Declining removes the row so
// the user drops out of the event entirely.
func (s *Store) SetParticipation(eventID, userID string, accepted bool) error {
	if !accepted {
		_, err := s.db.Exec(`DELETE FROM event_participants WHERE event_id = ? AND user_id = ?`, eventID, userID)
		return err
	}
	_, err := s.db.Exec(
		`UPDATE event_participants SET accepted = TRUE WHERE event_id = ? AND user_id = ?`,
		eventID, userID,
	)
	return err
}

func (s *Store) GetEvent(id string) (models.CalendarEvent, error) {
	var ev models.CalendarEvent
	err := s.db.QueryRow(
		`SELECT id, title, description, beginning, end_time, organizer_id FROM events WHERE id = ?`,
		id,
	).Scan(&ev.ID, &ev.Title, &ev.Description, &ev.Beginning, &ev.End, &ev.OrganizerID)
	if err != nil {
		return ev, err
	}
	if err := s.loadParticipants(&ev); err != nil {
		return ev, err
	}
	return ev, nil
}

func (s *Store) loadParticipants(ev *models.CalendarEvent) error {
	rows, err := s.db.Query(
		`SELECT user_id, accepted FROM event_participants WHERE event_id = ? ORDER BY user_id`,
		ev.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	ev.Guests = nil
	ev.Attendees = nil
	for rows.Next() {
		var userID string
		var accepted bool
		if err := rows.Scan(&userID, &accepted); err != nil {
			return err
		}
		if accepted {
			ev.Attendees = append(ev.Attendees, userID)
		} else {
			ev.Guests = append(ev.Guests, userID)
		}
	}
	return rows.Err()
}

// EventsBetween lists events visible to the user whose beginning falls in
// [from, to).
func (s *Store) EventsBetween(userID string, from, to time.Time) ([]models.CalendarEvent, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT e.id, e.title, e.description, e.beginning, e.end_time, e.organizer_id FROM events e
		 LEFT JOIN event_participants p ON p.event_id = e.id
		 WHERE (e.organizer_id = ? OR p.user_id = ?) AND e.beginning >= ? AND e.beginning < ?
		 ORDER BY e.beginning`,
		userID, userID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.CalendarEvent
	for rows.Next() {
		var ev models.CalendarEvent
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.Beginning, &ev.End, &ev.OrganizerID); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range events {
		if err := s.loadParticipants(&events[i]); err != nil {
			return nil, err
		}
	}
	return events, nil
}
