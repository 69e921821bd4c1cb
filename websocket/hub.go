package websocket

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Define notification types
const (
	NotificationTypeChatMessage        = "chat_message"
	NotificationTypeCommissionUpdate   = "commission_update"
	NotificationTypeOrderStatusChanged = "order_status_changed"
)

// Notification represents a message sent over WebSocket
type Notification struct {
	Type         string      `json:"type"`
	Message      string      `json:"message"`
	Data         interface{} `json:"data,omitempty"`
	UserID       string      `json:"userID,omitempty"`
	RequiresAuth bool        `json:"requiresAuth,omitempty"`
}

// Client represents a connected WebSocket client
type Client struct {
	UserID        primitive.ObjectID
	Conn          *websocket.Conn
	Authenticated bool
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	clients                map[primitive.ObjectID]*Client
	unauthenticatedClients map[*Client]bool
	register               chan *Client
	unregister             chan *Client
	mu                     sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:                make(map[primitive.ObjectID]*Client),
		unauthenticatedClients: make(map[*Client]bool),
		register:               make(chan *Client),
		unregister:             make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if client.Authenticated && client.UserID != primitive.NilObjectID {
				h.clients[client.UserID] = client
			} else {
				h.unauthenticatedClients[client] = true
			}
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if client.Authenticated && client.UserID != primitive.NilObjectID {
				if _, ok := h.clients[client.UserID]; ok {
					delete(h.clients, client.UserID)
				}
			} else {
				delete(h.unauthenticatedClients, client)
			}
			client.Conn.Close()
			h.mu.Unlock()
		}
	}
}

// SendToUser sends a message to a specific user
func (h *Hub) SendToUser(userID primitive.ObjectID, notification Notification) error {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user not connected")
	}

	return client.Conn.WriteJSON(notification)
}

// AuthenticateClient moves a client from unauthenticated to authenticated state
func (h *Hub) AuthenticateClient(client *Client, userID primitive.ObjectID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.unauthenticatedClients[client]; ok {
		delete(h.unauthenticatedClients, client)
	}

	client.Authenticated = true
	client.UserID = userID

	h.clients[userID] = client

	return nil
}

// NotifyChatMessage pushes a new chat message to the recipient if connected
func (h *Hub) NotifyChatMessage(recipientID primitive.ObjectID, messageData interface{}) error {
	notification := Notification{
		Type:    NotificationTypeChatMessage,
		Message: "New message received",
		Data:    messageData,
	}

	return h.SendToUser(recipientID, notification)
}

// NotifyCommissionUpdate tells a manager that an admin responded to their offer
func (h *Hub) NotifyCommissionUpdate(managerID primitive.ObjectID, commissionData interface{}) error {
	notification := Notification{
		Type:    NotificationTypeCommissionUpdate,
		Message: "Your commission offer has an update",
		Data:    commissionData,
	}

	return h.SendToUser(managerID, notification)
}

// NotifyOrderStatusChanged tells a customer about an order status change
func (h *Hub) NotifyOrderStatusChanged(userID primitive.ObjectID, orderData interface{}) error {
	notification := Notification{
		Type:    NotificationTypeOrderStatusChanged,
		Message: "Your order status has been updated",
		Data:    orderData,
	}

	return h.SendToUser(userID, notification)
}
