package main

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
)

const sessionCookieName = "mafia_session"

// generateSecretCode creates the player's login credential. Short on
// purpose: players read it aloud or type it on a phone.
func generateSecretCode() (string, error) {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func setSessionCookie(w http.ResponseWriter, playerID int64) {
	token := uuid.NewString()
	if err := createSession(token, playerID); err != nil {
		logError("setSessionCookie: createSession", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func getPlayerIdFromSession(r *http.Request) (int64, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return -1, err
	}
	return getSessionPlayerID(cookie.Value)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type credentials struct {
	Name       string `json:"name"`
	SecretCode string `json:"secret_code"`
}

type accountResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	SecretCode string `json:"secret_code,omitempty"`
}

func handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Name == "" {
		writeJSONError(w, http.StatusBadRequest, "Name is required")
		return
	}

	_, err := getAccountByName(creds.Name)
	if err == nil {
		writeJSONError(w, http.StatusConflict, "Name already taken. Use login with secret code if this is you.")
		return
	}
	if err != sql.ErrNoRows {
		logError("handleSignup: getAccountByName", err)
		writeJSONError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	secretCode, err := generateSecretCode()
	if err != nil {
		logError("handleSignup: generateSecretCode", err)
		writeJSONError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	playerID, err := createAccount(creds.Name, secretCode)
	if err != nil {
		logError("handleSignup: createAccount", err)
		writeJSONError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	log.Printf("New player created: name='%s', id=%d", creds.Name, playerID)
	DebugLog("handleSignup", "Player '%s' signed up with ID %d", creds.Name, playerID)
	LogDBState("after signup: " + creds.Name)

	setSessionCookie(w, playerID)
	writeJSON(w, http.StatusCreated, accountResponse{ID: playerID, Name: creds.Name, SecretCode: secretCode})
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Name == "" || creds.SecretCode == "" {
		writeJSONError(w, http.StatusBadRequest, "Name and secret code are required")
		return
	}

	account, err := getAccountByName(creds.Name)
	if err == sql.ErrNoRows || (err == nil && account.SecretCode != creds.SecretCode) {
		writeJSONError(w, http.StatusUnauthorized, "Invalid name or secret code")
		return
	}
	if err != nil {
		logError("handleLogin: getAccountByName", err)
		writeJSONError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	log.Printf("Player logged in: name='%s', id=%d", creds.Name, account.ID)
	DebugLog("handleLogin", "Player '%s' logged in with ID %d", creds.Name, account.ID)
	setSessionCookie(w, account.ID)
	writeJSON(w, http.StatusOK, accountResponse{ID: account.ID, Name: account.Name})
}

func handleLogout(w http.ResponseWriter, r *http.Request) {
	playerID, _ := getPlayerIdFromSession(r)

	cookie, err := r.Cookie(sessionCookieName)
	if err == nil {
		deleteSession(cookie.Value)
	}

	log.Printf("Player logged out: id=%d", playerID)
	DebugLog("handleLogout", "Player ID %d logged out", playerID)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
