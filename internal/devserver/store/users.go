package store

import (
	"github.com/learnhome/client/internal/models"
)

func (s *Store) CreateUser(u models.User, passwordHash string) error {
	_, err := s.db.Exec(
		`INSERT INTO users (id, username, password, firstname, lastname, email, photo, role) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, passwordHash, u.Firstname, u.Lastname, u.Email, u.Photo, u.Role,
	)
	return err
}

func (s *Store) GetUserByUsername(username string) (models.User, string, error) {
	var u models.User
	var hash string
	err := s.db.QueryRow(
		`SELECT id, username, password, firstname, lastname, email, photo, role FROM users WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &hash, &u.Firstname, &u.Lastname, &u.Email, &u.Photo, &u.Role)
	return u, hash, err
}

func (s *Store) GetUserByID(id string) (models.User, error) {
	var u models.User
	err := s.db.QueryRow(
		`SELECT id, username, firstname, lastname, email, photo, role FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Username, &u.Firstname, &u.Lastname, &u.Email, &u.Photo, &u.Role)
	return u, err
}

func (s *Store) SearchUsers(query string) ([]models.User, error) {
	rows, err := s.db.Query(
		`SELECT id, username, firstname, lastname, email, photo, role FROM users
		 WHERE username LIKE ? ORDER BY username LIMIT 20`,
		"%"+query+"%",
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
