// Signalbox Signal Game
//
// Participants join one of several independent groups. Each receives a unique
// role from a fixed alphabet plus that role's private symbol card. Exactly one
// symbol appears on every card, and the group's job is to find it: messaging
// is restricted to a star topology, so every role talks privately with the hub
// role and nobody else, and the submitter role turns the collected hints into
// the group's answer.
//
// Features:
// - WebSocket endpoint at /signal/ws, embedded browser client at /signal
// - Unique role per group, assigned uniformly at random from the free set
// - Star-topology private messaging enforced server-side
// - Group answer submission, either trusted or validated against every card
// - Admin login (static credential pair) gating the live group-count control
// - Roster broadcasts on every join and leave
// - Group count pushed on connect and after every admin change
// - In-browser QR button to share the game URL, backed by go-qrcode

package main

import (
	"crypto/rand"
	"crypto/subtle"
	_ "embed"
	"encoding/hex"
	"fmt"
	"log"
	mathrand "math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// ClientMessage is every message a client can send, discriminated by Type.
type ClientMessage struct {
	Type   string `json:"type"`              // "register", "send_message", "submit_answer", "admin_login", "admin_set_groups"
	Name   string `json:"name,omitempty"`    // register
	Group  int    `json:"group,omitempty"`   // register
	ToRole string `json:"to_role,omitempty"` // send_message
	Text   string `json:"text,omitempty"`    // send_message
	Answer string `json:"answer,omitempty"`  // submit_answer
	User   string `json:"user,omitempty"`    // admin_login
	Pass   string `json:"pass,omitempty"`    // admin_login
	Count  int    `json:"count,omitempty"`   // admin_set_groups
}

// CardMessage is the private registration result: the assigned role and card.
type CardMessage struct {
	Type  string   `json:"type"` // "card"
	Role  Role     `json:"role"`
	Card  []string `json:"card"`
	Group int      `json:"group"`
}

// PlayersMessage carries a group's roster after any change to it.
type PlayersMessage struct {
	Type    string        `json:"type"` // "players"
	Group   int           `json:"group"`
	Players []RosterEntry `json:"players"`
}

// PrivateMessage delivers one routed message to exactly one recipient.
type PrivateMessage struct {
	Type string `json:"type"` // "private_message"
	From Role   `json:"from"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// GameResultMessage announces an accepted group answer to the whole group.
type GameResultMessage struct {
	Type    string `json:"type"` // "game_result"
	Name    string `json:"name"`
	Answer  string `json:"answer"`
	Message string `json:"message"`
}

// GroupCountMessage informs clients how many groups are open.
type GroupCountMessage struct {
	Type  string `json:"type"` // "group_count"
	Count int    `json:"count"`
}

// GroupClosedMessage is sent to participants whose group was removed by an
// admin lowering the group count. They may register again afterwards.
type GroupClosedMessage struct {
	Type    string `json:"type"` // "group_closed"
	Message string `json:"message"`
}

// AckMessage confirms an operation that has no richer result.
type AckMessage struct {
	Type string `json:"type"` // "ack"
	Op   string `json:"op"`
}

// ErrorMessage reports a failed operation to the client that issued it.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Op      string `json:"op"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Client struct {
	conn  *websocket.Conn
	send  chan any
	id    string
	admin bool // mutated only by the hub
}

type event struct {
	client *Client
	msg    ClientMessage
}

// Hub is the session coordinator. Every inbound event is handled to
// completion under mu before the next one is observed, so registry
// invariants hold at every boundary.
type Hub struct {
	cfg      *Config
	policy   Policy
	registry *Registry

	clients map[*Client]bool
	byID    map[string]*Client

	register chan *Client
	unreg    chan *Client
	events   chan event

	mu sync.RWMutex
}

func newHub(cfg *Config) *Hub {
	return &Hub{
		cfg:    cfg,
		policy: Policy{Hub: Role(cfg.hubRole), Submitter: Role(cfg.submitterRole)},
		registry: NewRegistry(cfg.groups,
			mathrand.New(mathrand.NewSource(time.Now().UnixNano()))),
		clients:  make(map[*Client]bool),
		byID:     make(map[string]*Client),
		register: make(chan *Client),
		unreg:    make(chan *Client),
		events:   make(chan event),
	}
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.handleConnect(c)

		case c := <-h.unreg:
			h.handleDisconnect(c)

		case ev := <-h.events:
			switch ev.msg.Type {
			case "register":
				h.handleRegister(ev.client, ev.msg)
			case "send_message":
				h.handleSendMessage(ev.client, ev.msg)
			case "submit_answer":
				h.handleSubmitAnswer(ev.client, ev.msg)
			case "admin_login":
				h.handleAdminLogin(ev.client, ev.msg)
			case "admin_set_groups":
				h.handleAdminSetGroups(ev.client, ev.msg)
			}
		}
	}
}

func (h *Hub) handleConnect(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = true
	h.byID[c.id] = c

	// Push the open group count right away, so the client can offer a
	// group selector before registering.
	h.trySendLocked(c, GroupCountMessage{Type: "group_count", Count: h.registry.GroupCount()})
}

func (h *Hub) handleDisconnect(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		delete(h.byID, c.id)
		close(c.send)
	}

	p := h.registry.RemoveParticipant(c.id)
	if p == nil {
		return
	}

	logf(h.cfg, "GAMES: Player %q (role %s) left group %d", p.Name, p.Role, p.Group)
	h.broadcastRosterLocked(p.Group)
}

func (h *Hub) handleRegister(c *Client, msg ClientMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := strings.TrimSpace(msg.Name)
	if name == "" {
		h.sendErrorLocked(c, "register", errEmptyName)
		return
	}

	p, err := h.registry.AddParticipant(msg.Group, c.id, name)
	if err != nil {
		h.sendErrorLocked(c, "register", err)
		return
	}

	logf(h.cfg, "GAMES: Player %q joined group %d as role %s", p.Name, p.Group, p.Role)

	h.trySendLocked(c, CardMessage{
		Type:  "card",
		Role:  p.Role,
		Card:  cardFor(p.Role),
		Group: p.Group,
	})
	h.broadcastRosterLocked(p.Group)
}

func (h *Hub) handleSendMessage(c *Client, msg ClientMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := h.registry.FindParticipant(c.id)
	if p == nil {
		h.sendErrorLocked(c, "send_message", errNotRegistered)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		h.sendErrorLocked(c, "send_message", errEmptyMessage)
		return
	}

	to := Role(msg.ToRole)
	if !h.policy.Allowed(p.Role, to) {
		h.sendErrorLocked(c, "send_message", errDirectionForbidden(to))
		return
	}

	recipient := h.registry.FindByRole(p.Group, to)
	if recipient == nil {
		h.sendErrorLocked(c, "send_message", errRecipientNotFound(to))
		return
	}

	if rc := h.byID[recipient.ID]; rc != nil {
		h.trySendLocked(rc, PrivateMessage{
			Type: "private_message",
			From: p.Role,
			Name: p.Name,
			Text: text,
		})
	}
	h.trySendLocked(c, AckMessage{Type: "ack", Op: "send_message"})
}

func (h *Hub) handleSubmitAnswer(c *Client, msg ClientMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := h.registry.FindParticipant(c.id)
	if p == nil {
		h.sendErrorLocked(c, "submit_answer", errNotRegistered)
		return
	}
	if p.Role != h.policy.Submitter {
		h.sendErrorLocked(c, "submit_answer", errNotSubmitter)
		return
	}

	answer := strings.TrimSpace(msg.Answer)
	if answer == "" {
		h.sendErrorLocked(c, "submit_answer", errEmptyAnswer)
		return
	}

	if h.cfg.answerMode == answerModeValidate {
		var missing []Role
		for _, member := range h.registry.Members(p.Group) {
			if !cardHas(member.Role, answer) {
				missing = append(missing, member.Role)
			}
		}
		if len(missing) > 0 {
			h.sendErrorLocked(c, "submit_answer", errAnswerNotOnCards(missing))
			return
		}
	}

	logf(h.cfg, "GAMES: Player %q submitted answer %q for group %d", p.Name, answer, p.Group)

	result := GameResultMessage{
		Type:    "game_result",
		Name:    p.Name,
		Answer:  answer,
		Message: fmt.Sprintf("%s submitted the group answer: %s", p.Name, answer),
	}
	for _, member := range h.registry.Members(p.Group) {
		if mc := h.byID[member.ID]; mc != nil {
			h.trySendLocked(mc, result)
		}
	}
	h.trySendLocked(c, AckMessage{Type: "ack", Op: "submit_answer"})
}

func (h *Hub) handleAdminLogin(c *Client, msg ClientMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// An empty configured password disables admin entirely.
	if h.cfg.adminPass == "" {
		h.sendErrorLocked(c, "admin_login", errBadCredentials)
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(msg.User), []byte(h.cfg.adminUser))
	passOK := subtle.ConstantTimeCompare([]byte(msg.Pass), []byte(h.cfg.adminPass))
	if userOK&passOK != 1 {
		h.sendErrorLocked(c, "admin_login", errBadCredentials)
		return
	}

	c.admin = true
	logf(h.cfg, "GAMES: Admin logged in")
	h.trySendLocked(c, AckMessage{Type: "ack", Op: "admin_login"})
}

func (h *Hub) handleAdminSetGroups(c *Client, msg ClientMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !c.admin {
		h.sendErrorLocked(c, "admin_set_groups", errNotAdmin)
		return
	}

	count, dropped := h.registry.SetGroupCount(msg.Count)
	logf(h.cfg, "GAMES: Admin set group count to %d (%d players dropped)", count, len(dropped))

	for _, p := range dropped {
		if pc := h.byID[p.ID]; pc != nil {
			h.trySendLocked(pc, GroupClosedMessage{
				Type:    "group_closed",
				Message: fmt.Sprintf("Group %d was closed by the admin. You may register again.", p.Group),
			})
		}
	}

	for client := range h.clients {
		h.trySendLocked(client, GroupCountMessage{Type: "group_count", Count: count})
	}
}

func (h *Hub) broadcastRosterLocked(groupID int) {
	msg := PlayersMessage{
		Type:    "players",
		Group:   groupID,
		Players: h.registry.Roster(groupID),
	}
	for _, member := range h.registry.Members(groupID) {
		if mc := h.byID[member.ID]; mc != nil {
			h.trySendLocked(mc, msg)
		}
	}
}

func (h *Hub) sendErrorLocked(c *Client, op string, err error) {
	ge, ok := err.(*GameError)
	if !ok {
		ge = gameErrorf("internal", "%v", err)
	}
	h.trySendLocked(c, ErrorMessage{Type: "error", Op: op, Code: ge.Code, Message: ge.Message})
}

// trySendLocked queues msg for c, dropping the client if its buffer is full.
func (h *Hub) trySendLocked(c *Client, msg any) {
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		delete(h.byID, c.id)
		close(c.send)
	}
}

func newUpgrader(cfg *Config) *websocket.Upgrader {
	up := &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	switch cfg.allowedOrigins {
	case "":
		// Keep gorilla's same-origin default.
	case "*":
		up.CheckOrigin = func(r *http.Request) bool {
			return true
		}
	default:
		allowed := strings.Split(cfg.allowedOrigins, ",")
		up.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, a := range allowed {
				if strings.TrimSpace(a) == origin {
					return true
				}
			}
			return false
		}
	}

	return up
}

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	return hex.EncodeToString(buf)
}

// WebSocket handler: one Client per connection, reader in this goroutine,
// writer in its own.
func serveWS(cfg *Config, h *Hub) httprouter.Handle {
	upgrader := newUpgrader(cfg)

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		connID := newConnID()
		if connID == "" {
			http.Error(w, "unable to assign connection id", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 8),
			id:   connID,
		}

		h.register <- client

		go client.writePump()
		client.readPump(h)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "register", "send_message", "submit_answer", "admin_login", "admin_set_groups":
			h.events <- event{client: c, msg: msg}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the game URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /signal/qr; strip trailing "/qr" to get the game URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// ---- Static file paths ----

//go:embed signal/index.html
var indexHTML []byte

//go:embed signal/app.css
var signalCSS []byte

//go:embed signal/app.js
var signalJS []byte

func getIndexHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(indexHTML)
	}
}

func getCssHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(signalCSS)
	}
}

func getJsHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(signalJS)
	}
}

// registerSignalGame sets up routes so that:
//   - $path          → HTML client
//   - $path/ws       → WebSocket for the game
//   - $path/qr       → PNG QR code for the game URL
func registerSignalGame(cfg *Config, path string, mux *httprouter.Router) {
	h := newHub(cfg)
	go h.run()

	// Client view (HTML)
	mux.GET(cfg.prefix+path, getIndexHandler(cfg))

	// Shared assets
	mux.GET(cfg.prefix+"/assets/signal/app.css", getCssHandler(cfg))
	mux.GET(cfg.prefix+"/assets/signal/app.js", getJsHandler(cfg))

	// Game websocket
	mux.GET(cfg.prefix+path+"/ws", serveWS(cfg, h))

	// QR code
	mux.GET(cfg.prefix+path+"/qr", qrHandler)
}
