package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/bytetube/bytetube-chat/internal/broadcast"
	"github.com/bytetube/bytetube-chat/internal/idgen"
	"github.com/bytetube/bytetube-chat/internal/models"
	"github.com/bytetube/bytetube-chat/internal/service"
)

const (
	systemUser    = "System"
	writeWait     = 10 * time.Second
	maxFrameBytes = 64 << 10
	sendQueueSize = 64

	defaultPingInterval = 30 * time.Second
)

// RoomHub はこのインスタンスが受け持つ部屋ごとのWebSocket接続を管理します
type RoomHub struct {
	rooms map[string]*Room
	mu    sync.RWMutex
}

// Room は1つの部屋に接続しているクライアントの集合です
type Room struct {
	roomId  string
	clients map[string]*Client // 接続IDをキーとしたクライアントのマップ
	mu      sync.RWMutex
}

// Client は1つのWebSocket接続を表します
// connへの書き込みはwritePumpのみが行います
type Client struct {
	connId string
	conn   *websocket.Conn
	room   *Room

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewRoomHub() *RoomHub {
	return &RoomHub{rooms: make(map[string]*Room)}
}

// ChatHandler は部屋ごとのチャット用WebSocketを提供します
type ChatHandler struct {
	svc          *service.RoomService
	hub          *RoomHub
	relay        broadcast.Publisher
	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

func NewChatHandler(s *service.RoomService, hub *RoomHub, relay broadcast.Publisher, pingInterval time.Duration) *ChatHandler {
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	return &ChatHandler{
		svc:   s,
		hub:   hub,
		relay: relay,
		upgrader: websocket.Upgrader{
			// ブラウザのOriginはCORS層で確認済み。ネイティブクライアントはOriginを送らない
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pingInterval: pingInterval,
	}
}

// HandleWebSocket はパスの部屋に接続を参加させ、
// 正しい形式のメッセージを送信者を含む部屋全体に再配信します
func (h *ChatHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomId := normalizeID(chi.URLParam(r, "roomId"))
	if err := validateRoomId(roomId); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := h.hub.registerClient(roomId, idgen.NewConnID(), conn)
	if err := h.svc.Attach(r.Context(), roomId, client.connId); err != nil {
		log.Printf("Failed to record connection: roomId=%s, connId=%s, error=%v", roomId, client.connId, err)
	}
	defer func() {
		h.hub.unregisterClient(client)
		if err := h.svc.Detach(context.Background(), roomId, client.connId); err != nil {
			log.Printf("Failed to remove connection: roomId=%s, connId=%s, error=%v", roomId, client.connId, err)
		}
		conn.Close()
		log.Printf("WebSocket disconnected: roomId=%s, connId=%s", roomId, client.connId)
	}()

	go client.writePump(h.pingInterval)
	log.Printf("WebSocket connected: roomId=%s, connId=%s", roomId, client.connId)

	client.enqueue(systemMessage("Welcome to room: " + roomId))

	pongWait := 2 * h.pingInterval
	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: roomId=%s, connId=%s, error=%v", roomId, client.connId, err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		msg, err := decodeChatMessage(raw)
		if err != nil {
			client.enqueue(systemMessage("Invalid message format."))
			continue
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			log.Printf("Failed to encode chat message: %v", err)
			continue
		}
		h.broadcast(r.Context(), roomId, payload)
	}
}

// broadcast はこのインスタンスのクライアントに配信し、他のインスタンスへ中継します
func (h *ChatHandler) broadcast(ctx context.Context, roomId string, payload []byte) {
	h.hub.DeliverLocal(roomId, payload)
	if err := h.relay.Publish(ctx, roomId, payload); err != nil {
		log.Printf("Failed to relay message: roomId=%s, error=%v", roomId, err)
	}
}

var errIncompleteMessage = errors.New("user, text and timestamp are required")

// decodeChatMessage は3つの文字列フィールドをすべて持つオブジェクトのみ受け付けます
func decodeChatMessage(raw []byte) (models.ChatMessage, error) {
	var in struct {
		User      *string `json:"user"`
		Text      *string `json:"text"`
		Timestamp *string `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return models.ChatMessage{}, err
	}
	if in.User == nil || in.Text == nil || in.Timestamp == nil {
		return models.ChatMessage{}, errIncompleteMessage
	}
	return models.ChatMessage{User: *in.User, Text: *in.Text, Timestamp: *in.Timestamp}, nil
}

func systemMessage(text string) []byte {
	b, _ := json.Marshal(models.NewChatMessage(systemUser, text, time.Now()))
	return b
}

// writePump は送信キューを書き出し、pingで接続を維持します
func (c *Client) writePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("Failed to send message to connId=%s: %v", c.connId, err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue は送信キューにbを積みます
// 切断済みまたは詰まっている場合はfalseを返します
func (c *Client) enqueue(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (hub *RoomHub) registerClient(roomId, connId string, conn *websocket.Conn) *Client {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	room, exists := hub.rooms[roomId]
	if !exists {
		room = &Room{
			roomId:  roomId,
			clients: make(map[string]*Client),
		}
		hub.rooms[roomId] = room
	}

	client := &Client{
		connId: connId,
		conn:   conn,
		room:   room,
		send:   make(chan []byte, sendQueueSize),
	}

	room.mu.Lock()
	room.clients[connId] = client
	room.mu.Unlock()

	return client
}

// unregisterClient はクライアントを削除し、空になった部屋を破棄します
func (hub *RoomHub) unregisterClient(client *Client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	room := client.room
	room.mu.Lock()
	delete(room.clients, client.connId)
	isEmpty := len(room.clients) == 0
	room.mu.Unlock()
	client.closeSend()

	if isEmpty && hub.rooms[room.roomId] == room {
		delete(hub.rooms, room.roomId)
	}
}

// DeliverLocal はこのインスタンス上の部屋の全クライアントにpayloadを配信します
// 追いつけないクライアントは切断します
func (hub *RoomHub) DeliverLocal(roomId string, payload []byte) {
	hub.mu.RLock()
	room, ok := hub.rooms[roomId]
	hub.mu.RUnlock()
	if !ok {
		return
	}

	room.mu.RLock()
	defer room.mu.RUnlock()
	for connId, client := range room.clients {
		if !client.enqueue(payload) {
			log.Printf("Dropping slow client: roomId=%s, connId=%s", roomId, connId)
			client.conn.Close()
		}
	}
}

// ClientCount はこのインスタンスの接続クライアント数を返します
func (hub *RoomHub) ClientCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	n := 0
	for _, room := range hub.rooms {
		room.mu.RLock()
		n += len(room.clients)
		room.mu.RUnlock()
	}
	return n
}

// RoomClientCount はこのインスタンスにおける部屋のクライアント数を返します
func (hub *RoomHub) RoomClientCount(roomId string) int {
	hub.mu.RLock()
	room, ok := hub.rooms[roomId]
	hub.mu.RUnlock()
	if !ok {
		return 0
	}
	room.mu.RLock()
	defer room.mu.RUnlock()
	return len(room.clients)
}
