package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	errs "github.com/chisomudeze/marketa/errors"
	"github.com/chisomudeze/marketa/models"
	"github.com/chisomudeze/marketa/server/response"
)

// handleSendMessage is the REST send path; the websocket path reuses the same
// service call. Sender identity always comes from the bound identity, never
// from the payload.
func (s *Server) handleSendMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		var request models.SendMessageRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		msg, apiErr := s.MessageService.SendMessage(userID, &request)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		response.JSON(c, "message sent successfully", http.StatusCreated, msg, nil)
	}
}

func (s *Server) handleListConversations() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		previews, apiErr := s.MessageService.ListConversations(userID)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		response.JSON(c, "conversations retrieved successfully", http.StatusOK, previews, nil)
	}
}

// handleInitiateConversation resolves the conversation anchor for an item.
// When no message exists yet the response carries exists=false rather than a
// fabricated id.
func (s *Server) handleInitiateConversation() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		itemID, err := strconv.ParseUint(c.Query("item_id"), 10, 64)
		if err != nil {
			response.JSON(c, "invalid item_id", http.StatusBadRequest, nil, errs.ErrBadRequest)
			return
		}

		var counterpartID *uint
		if raw := c.Query("counterpart_id"); raw != "" {
			parsed, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				response.JSON(c, "invalid counterpart_id", http.StatusBadRequest, nil, errs.ErrBadRequest)
				return
			}
			id := uint(parsed)
			counterpartID = &id
		}

		ref, apiErr := s.MessageService.FindOrCreateConversation(userID, uint(itemID), counterpartID)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		response.JSON(c, "conversation resolved", http.StatusOK, ref, nil)
	}
}

func (s *Server) handleGetConversationMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		itemID, err := strconv.ParseUint(c.Query("item_id"), 10, 64)
		if err != nil {
			response.JSON(c, "invalid item_id", http.StatusBadRequest, nil, errs.ErrBadRequest)
			return
		}
		counterpartID, err := strconv.ParseUint(c.Query("counterpart_id"), 10, 64)
		if err != nil {
			response.JSON(c, "invalid counterpart_id", http.StatusBadRequest, nil, errs.ErrBadRequest)
			return
		}

		messages, apiErr := s.MessageService.ListConversationMessages(userID, uint(counterpartID), uint(itemID))
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		response.JSON(c, "messages retrieved successfully", http.StatusOK, messages, nil)
	}
}

func (s *Server) handleGetItemMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUserID(c); !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		itemID, err := strconv.ParseUint(c.Param("itemID"), 10, 64)
		if err != nil {
			response.JSON(c, "invalid item id", http.StatusBadRequest, nil, errs.ErrBadRequest)
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

		messages, apiErr := s.MessageService.ListItemMessages(uint(itemID), page, pageSize)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		response.JSON(c, "messages retrieved successfully", http.StatusOK, messages, nil)
	}
}

func (s *Server) handleMarkMessagesRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		var request models.MarkReadRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		updated, apiErr := s.MessageService.MarkMessagesRead(userID, request.MessageIDs)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		response.JSON(c, "messages marked as read", http.StatusOK, gin.H{"updated": updated}, nil)
	}
}
