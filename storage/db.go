package storage

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"backend/models"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

var db *sql.DB

func InitDB() *sql.DB {
	if err := godotenv.Load(); err != nil {
		log.Fatal("Error loading .env file")
	}
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")

	connStr := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%s sslmode=disable",
		user, password, dbname, host, port)

	var err error
	db, err = sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	return db
}

func GetDB() *sql.DB {
	return db
}

// EnsureAuthSchema creates the staff and session tables when missing.
func EnsureAuthSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS staff (
			id SERIAL PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS session (
			session_id TEXT PRIMARY KEY,
			staff_id INTEGER NOT NULL REFERENCES staff (id),
			ip_address TEXT NOT NULL DEFAULT '',
			timestp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to ensure auth schema: %v", err)
		}
	}
	return nil
}

// SaveSession stores a new staff session. Each device gets its own row.
func SaveSession(db *sql.DB, session *models.Session) error {
	insertQuery := `INSERT INTO session (session_id, staff_id, ip_address, timestp, expires_at)
                    VALUES ($1, $2, $3, $4, $5)`
	_, err := db.Exec(insertQuery, session.SessionID, session.StaffID, session.IPAddress, session.Timestamp, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert new session: %v", err)
	}
	return nil
}

// GetStaffByEmail loads a staff account for login.
func GetStaffByEmail(db *sql.DB, email string) (*models.Staff, error) {
	var staff models.Staff
	query := `SELECT id, email, password, first_name, last_name, is_admin FROM staff WHERE LOWER(email) = LOWER($1)`

	err := db.QueryRow(query, email).Scan(&staff.ID, &staff.Email, &staff.Password, &staff.FirstName, &staff.LastName, &staff.IsAdmin)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("staff member with email %s not found", email)
		}
		return nil, fmt.Errorf("failed to query staff: %v", err)
	}

	return &staff, nil
}

// GetStaffBySessionID resolves an active session to its staff member.
func GetStaffBySessionID(db *sql.DB, sessionID string) (*models.Staff, error) {
	query := `
		SELECT st.id, st.email, st.first_name, st.last_name, st.is_admin
		FROM session s
		JOIN staff st ON s.staff_id = st.id
		WHERE s.session_id = $1 AND s.expires_at > NOW()
	`

	var staff models.Staff
	err := db.QueryRow(query, sessionID).Scan(
		&staff.ID, &staff.Email, &staff.FirstName, &staff.LastName, &staff.IsAdmin,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no active session found for the given session ID")
		}
		return nil, err
	}
	return &staff, nil
}

// DeleteSessionByID deletes a specific session (logout).
func DeleteSessionByID(db *sql.DB, sessionID string) error {
	result, err := db.Exec(`DELETE FROM session WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %v", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("session not found or already deleted")
	}
	return nil
}

// CleanupExpiredSessions removes sessions past their expiry.
func CleanupExpiredSessions(db *sql.DB) error {
	_, err := db.Exec(`DELETE FROM session WHERE expires_at < NOW()`)
	return err
}
