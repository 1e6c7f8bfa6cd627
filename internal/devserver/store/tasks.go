package store

import (
	"github.com/learnhome/client/internal/models"
)

func (s *Store) CreateTask(t models.Task) error {
	_, err := s.db.Exec(
		`INSERT INTO tasks (id, title, performer_id, done, validated) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.PerformerID, t.Done, t.Validated,
	)
	return err
}

func (s *Store) GetTask(id string) (models.Task, error) {
	var t models.Task
	err := s.db.QueryRow(
		`SELECT id, title, performer_id, done, validated FROM tasks WHERE id = ?`,
		id,
	).Scan(&t.ID, &t.Title, &t.PerformerID, &t.Done, &t.Validated)
	return t, err
}

// CompleteTask flips todo -> done. Only the performer may do it; a
// validated task never regresses.
func (s *Store) CompleteTask(id, performerID string) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE tasks SET done = TRUE WHERE id = ? AND performer_id = ? AND validated = FALSE`,
		id, performerID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ValidateTask flips done -> validated. Role enforcement happens in the
// handler; the store only guards the ordering.
func (s *Store) ValidateTask(id string) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE tasks SET validated = TRUE WHERE id = ? AND done = TRUE`,
		id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// TasksFor lists the user's own tasks plus, for teachers, the tasks of
// their student contacts.
func (s *Store) TasksFor(userID string) ([]models.Task, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT t.id, t.title, t.performer_id, t.done, t.validated FROM tasks t
		 LEFT JOIN contacts c ON (c.user_a = ? AND c.user_b = t.performer_id) OR (c.user_b = ? AND c.user_a = t.performer_id)
		 LEFT JOIN users viewer ON viewer.id = ?
		 WHERE t.performer_id = ? OR (viewer.role = 'teacher' AND c.user_a IS NOT NULL)
		 ORDER BY t.id`,
		userID, userID, userID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.PerformerID, &t.Done, &t.Validated); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
