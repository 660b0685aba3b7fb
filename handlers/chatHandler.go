package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/vaibhav23244/multi-agent-backend/models"
)

const invalidInputMessage = "Invalid input. 'message' field is required."

type ChatProcessor interface {
	Chat(ctx context.Context, message string) (*models.ConversationResult, error)
}

type ChatHandler struct {
	service ChatProcessor
}

func NewChatHandler(service ChatProcessor) *ChatHandler {
	return &ChatHandler{service: service}
}

func (h *ChatHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.Hello).Methods("GET")
	router.HandleFunc("/chat", h.Chat).Methods("POST")
}

func (h *ChatHandler) Hello(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Hello World!"))
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	logger.Info().Msg("Received chat request")

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Msg("Chat request panicked")
			h.writeErrorResponse(w, http.StatusInternalServerError, fmt.Sprint(rec))
		}
	}()

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error().Err(err).Msg("Failed to decode chat request JSON")
		h.writeErrorResponse(w, http.StatusBadRequest, invalidInputMessage)
		return
	}

	if req.Message == nil {
		logger.Error().Msg("No message provided in chat request")
		h.writeErrorResponse(w, http.StatusBadRequest, invalidInputMessage)
		return
	}

	result, err := h.service.Chat(r.Context(), *req.Message)
	if err != nil {
		logger.Error().Err(err).Msg("Chat processing failed")
		h.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info().Bool("status", result.Status).Msg("Chat processing completed successfully")
	h.writeJSONResponse(w, http.StatusOK, models.ChatResponse{Response: *result})
}

func (h *ChatHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *ChatHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
