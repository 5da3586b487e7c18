package main

import (
	"log"

	"github.com/jmoiron/sqlx"
)

// Global database handle. Game state never touches the database; only
// accounts and sessions are persisted so identity survives restarts and
// reconnects.
var db *sqlx.DB

// Account is a registered player identity. The secret code is the only
// credential: players re-enter it to log back in from another device.
type Account struct {
	ID         int64  `db:"id"`
	Name       string `db:"name"`
	SecretCode string `db:"secret_code"`
}

func getAccountByName(name string) (Account, error) {
	var a Account
	err := db.Get(&a, "SELECT rowid as id, name, secret_code FROM player WHERE name = ?", name)
	return a, err
}

func getAccountByID(id int64) (Account, error) {
	var a Account
	err := db.Get(&a, "SELECT rowid as id, name, secret_code FROM player WHERE rowid = ?", id)
	return a, err
}

func createAccount(name, secretCode string) (int64, error) {
	result, err := db.Exec("INSERT INTO player (name, secret_code) VALUES (?, ?)", name, secretCode)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func createSession(token string, playerID int64) error {
	_, err := db.Exec("INSERT INTO session (token, player_id) VALUES (?, ?)", token, playerID)
	return err
}

func deleteSession(token string) {
	db.Exec("DELETE FROM session WHERE token = ?", token)
}

func getSessionPlayerID(token string) (int64, error) {
	var playerID int64
	err := db.Get(&playerID, "SELECT player_id FROM session WHERE token = ?", token)
	return playerID, err
}

func initDB() error {
	schema := `
	PRAGMA journal_mode=WAL;

	CREATE TABLE IF NOT EXISTS player (
		name TEXT UNIQUE NOT NULL,
		secret_code TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS session (
		token TEXT PRIMARY KEY,
		player_id INTEGER NOT NULL,
		FOREIGN KEY (player_id) REFERENCES player(rowid)
	);
	`
	_, err := db.Exec(schema)
	if err != nil {
		log.Printf("initDB error: %v", err)
		return err
	}
	log.Printf("Database initialized successfully")
	return nil
}
