// controllers/chat_controller.go
package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hadialmais/lynqmarket_backend/config"
	"github.com/hadialmais/lynqmarket_backend/middleware"
	"github.com/hadialmais/lynqmarket_backend/models"
	"github.com/hadialmais/lynqmarket_backend/utils"
	"github.com/hadialmais/lynqmarket_backend/websocket"
)

// ChatController handles user-to-manager conversations
type ChatController struct {
	DB  *mongo.Client
	Hub *websocket.Hub
}

func NewChatController(db *mongo.Client, hub *websocket.Hub) *ChatController {
	return &ChatController{DB: db, Hub: hub}
}

// SendMessage posts a message. Without a conversationId a new conversation
// with the given manager is opened first.
func (cc *ChatController) SendMessage(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid token",
		})
	}
	senderID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid token",
		})
	}

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Message content is required",
		})
	}

	conversationsColl := config.GetCollection(cc.DB, "conversations")

	var conversation models.Conversation
	if req.ConversationID != "" {
		conversationID, err := primitive.ObjectIDFromHex(req.ConversationID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid conversation ID",
			})
		}
		err = conversationsColl.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&conversation)
		if err != nil {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Conversation not found",
			})
		}
		if conversation.UserID != senderID && conversation.ManagerID != senderID {
			return c.JSON(http.StatusForbidden, models.Response{
				Status:  http.StatusForbidden,
				Message: "You are not part of this conversation",
			})
		}
	} else {
		if req.ManagerID == "" {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Either conversationId or managerId is required",
			})
		}
		managerID, err := primitive.ObjectIDFromHex(req.ManagerID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid manager ID",
			})
		}

		// Reuse an existing conversation between the two parties
		err = conversationsColl.FindOne(ctx, bson.M{"userId": senderID, "managerId": managerID}).Decode(&conversation)
		if err == mongo.ErrNoDocuments {
			conversation = models.Conversation{
				UserID:    senderID,
				ManagerID: managerID,
				CreatedAt: time.Now(),
			}
			if req.ServiceID != "" {
				serviceID, err := primitive.ObjectIDFromHex(req.ServiceID)
				if err == nil {
					conversation.ServiceID = &serviceID
				}
			}
			result, err := conversationsColl.InsertOne(ctx, conversation)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, models.Response{
					Status:  http.StatusInternalServerError,
					Message: "Failed to create conversation",
				})
			}
			conversation.ID = result.InsertedID.(primitive.ObjectID)
		} else if err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to look up conversation",
			})
		}
	}

	now := time.Now()
	message := models.ChatMessage{
		ConversationID: conversation.ID,
		SenderID:       senderID,
		Content:        utils.SanitizeInput(req.Content),
		CreatedAt:      now,
	}

	messagesColl := config.GetCollection(cc.DB, "messages")
	result, err := messagesColl.InsertOne(ctx, message)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to send message",
		})
	}
	message.ID = result.InsertedID.(primitive.ObjectID)

	_, err = conversationsColl.UpdateOne(ctx, bson.M{"_id": conversation.ID}, bson.M{"$set": bson.M{
		"lastMessage":   message.Content,
		"lastMessageAt": now,
	}})
	if err != nil {
		log.Printf("Failed to update conversation %s: %v", conversation.ID.Hex(), err)
	}

	// Push to the other participant if connected
	recipientID := conversation.ManagerID
	if senderID == conversation.ManagerID {
		recipientID = conversation.UserID
	}
	if cc.Hub != nil {
		if err := cc.Hub.NotifyChatMessage(recipientID, message); err != nil {
			log.Printf("Chat push to %s skipped: %v", recipientID.Hex(), err)
		}
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Message sent successfully",
		Data:    message,
	})
}

// GetConversations lists the caller's conversations, most recent first
func (cc *ChatController) GetConversations(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid token",
		})
	}

	conversationsColl := config.GetCollection(cc.DB, "conversations")
	cursor, err := conversationsColl.Find(ctx,
		bson.M{"$or": []bson.M{{"userId": userID}, {"managerId": userID}}},
		options.Find().SetSort(bson.D{{Key: "lastMessageAt", Value: -1}}))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve conversations",
		})
	}
	defer cursor.Close(ctx)

	conversations := []models.Conversation{}
	if err := cursor.All(ctx, &conversations); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decode conversations",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Conversations retrieved successfully",
		Data:    conversations,
	})
}

// GetMessages returns a conversation's messages and marks the caller's
// unread ones as read
func (cc *ChatController) GetMessages(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid token",
		})
	}

	conversationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid conversation ID",
		})
	}

	conversationsColl := config.GetCollection(cc.DB, "conversations")
	var conversation models.Conversation
	err = conversationsColl.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&conversation)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Conversation not found",
		})
	}
	if conversation.UserID != userID && conversation.ManagerID != userID {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "You are not part of this conversation",
		})
	}

	messagesColl := config.GetCollection(cc.DB, "messages")
	cursor, err := messagesColl.Find(ctx, bson.M{"conversationId": conversationID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve messages",
		})
	}
	defer cursor.Close(ctx)

	messages := []models.ChatMessage{}
	if err := cursor.All(ctx, &messages); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decode messages",
		})
	}

	// Mark messages from the other participant as read
	now := time.Now()
	_, err = messagesColl.UpdateMany(ctx,
		bson.M{"conversationId": conversationID, "senderId": bson.M{"$ne": userID}, "readAt": nil},
		bson.M{"$set": bson.M{"readAt": now}})
	if err != nil {
		log.Printf("Failed to mark messages read in %s: %v", conversationID.Hex(), err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Messages retrieved successfully",
		Data:    messages,
	})
}

// HandleWebSocket upgrades the connection for real-time notifications
func (cc *ChatController) HandleWebSocket(c echo.Context) error {
	userID := primitive.NilObjectID

	// Token is optional on connect; clients can also authenticate in-band
	if idHex := c.QueryParam("token"); idHex != "" {
		if result, err := utils.ValidateToken(idHex, cc.DB); err == nil && result.Valid && result.User != nil {
			userID = result.User.ID
		}
	}

	return websocket.HandleWebSocket(c, cc.Hub, userID)
}
