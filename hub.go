package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
)

// WSMessage represents a message from the client
type WSMessage struct {
	Action         string `json:"action"`
	RoomID         string `json:"room_id,omitempty"`
	ActionKind     string `json:"action_kind,omitempty"`
	TargetPlayerID string `json:"target_player_id,omitempty"`
}

// Client represents a websocket connection with player info
type Client struct {
	conn     *websocket.Conn
	playerID int64
	username string
	writeMu  sync.Mutex // Serialize writes to WebSocket (required by gorilla/websocket)
}

// WebSocket hub for fanning events out to connected clients
type Hub struct {
	clients    map[*websocket.Conn]*Client
	broadcast  chan []byte
	register   chan *Client
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	done       chan struct{}
	wg         sync.WaitGroup
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn, 64),
		done:       make(chan struct{}),
	}
}

// stop signals the hub goroutine to exit and waits for it to finish
func (h *Hub) stop() {
	close(h.done)
	h.wg.Wait()
}

var hub = newHub()

// rooms is the global room registry, wired up in main (tests build their own).
var rooms *RoomManager

// toPlayer satisfies the room manager's event sink: the event is JSON-encoded
// and delivered to every open connection belonging to the player.
func (h *Hub) toPlayer(playerID int64, ev Event) {
	message, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Event marshal error for player %d: %v", playerID, err)
		return
	}
	h.sendToPlayer(playerID, message)
}

func (h *Hub) sendToPlayer(playerID int64, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.playerID == playerID {
			LogWSMessage("OUT", client.username, string(message))

			// Serialize writes to each connection
			client.writeMu.Lock()
			err := client.conn.WriteMessage(websocket.TextMessage, message)
			client.writeMu.Unlock()

			if err != nil {
				log.Printf("WebSocket write error to player %d: %v", playerID, err)
			}
		}
	}
}

func (h *Hub) run() {
	h.wg.Add(1)
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client connected (player %d: %s). Total: %d", client.playerID, client.username, total)
			DebugLog("hub.register", "Player '%s' (ID: %d) connected via WebSocket", client.username, client.playerID)

		case conn := <-h.unregister:
			h.mu.Lock()
			client, ok := h.clients[conn]
			if ok {
				delete(h.clients, conn)
				conn.Close()
				DebugLog("hub.unregister", "Player '%s' (ID: %d) connection closed", client.username, client.playerID)
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("WebSocket client disconnected. Total: %d", total)

		case message := <-h.broadcast:
			h.mu.RLock()
			for conn, client := range h.clients {
				// Serialize writes to each connection
				client.writeMu.Lock()
				err := conn.WriteMessage(websocket.TextMessage, message)
				client.writeMu.Unlock()

				if err != nil {
					log.Printf("WebSocket write error: %v", err)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// handleWSMessage routes a client message to the room manager. Invalid
// submissions already come back to the sender as error events, so the
// returned errors only feed the debug log here.
func handleWSMessage(client *Client, message []byte) {
	LogWSMessage("IN", client.username, string(message))

	var msg WSMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		DebugLog("handleWSMessage", "Player %d sent unparseable message: %v", client.playerID, err)
		rooms.sendErrorEvent(client.playerID, "", "Invalid message")
		return
	}
	if msg.RoomID == "" {
		rooms.sendErrorEvent(client.playerID, "", "Missing room_id")
		return
	}

	switch msg.Action {
	case "join_room":
		rooms.Join(msg.RoomID, client.playerID, client.username)
	case "start_game":
		rooms.Start(msg.RoomID, client.playerID)
	case "submit_action":
		targetID, err := strconv.ParseInt(msg.TargetPlayerID, 10, 64)
		if err != nil {
			rooms.sendErrorEvent(client.playerID, msg.RoomID, "Invalid target player id")
			return
		}
		rooms.SubmitAction(msg.RoomID, client.playerID, ActionKind(msg.ActionKind), targetID)
	case "submit_vote":
		// An empty target means abstain.
		targetID := voteAbstain
		if msg.TargetPlayerID != "" {
			var err error
			targetID, err = strconv.ParseInt(msg.TargetPlayerID, 10, 64)
			if err != nil {
				rooms.sendErrorEvent(client.playerID, msg.RoomID, "Invalid target player id")
				return
			}
		}
		rooms.SubmitVote(msg.RoomID, client.playerID, targetID)
	case "end_game":
		rooms.End(msg.RoomID, client.playerID)
	default:
		DebugLog("handleWSMessage", "Player %d sent unknown action %q", client.playerID, msg.Action)
		rooms.sendErrorEvent(client.playerID, msg.RoomID, "Unknown action")
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Capture globals at entry to avoid race conditions in parallel tests
	currentHub := hub

	playerID, err := getPlayerIdFromSession(r)
	if err != nil {
		DebugLog("handleWebSocket", "Rejected WebSocket connection - not logged in")
		http.Error(w, "Not logged in", http.StatusUnauthorized)
		return
	}

	account, err := getAccountByID(playerID)
	if err != nil {
		DebugLog("handleWebSocket", "Rejected WebSocket connection - unknown account %d", playerID)
		http.Error(w, "Unknown account", http.StatusUnauthorized)
		return
	}
	DebugLog("handleWebSocket", "Player '%s' (ID: %d) initiating WebSocket connection", account.Name, playerID)

	var upgrader = websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error for player %d (%s): %v", playerID, account.Name, err)
		return
	}

	DebugLog("handleWebSocket", "WebSocket upgraded successfully for player '%s' (ID: %d)", account.Name, playerID)
	client := &Client{conn: conn, playerID: playerID, username: account.Name}
	currentHub.register <- client

	// Handle messages and disconnection
	go func() {
		defer func() {
			currentHub.unregister <- conn
		}()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				break
			}
			handleWSMessage(client, message)
		}
	}()
}
