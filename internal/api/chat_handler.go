package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sparkchat/backend/internal/auth"
	app_errors "sparkchat/backend/internal/errors"
	"sparkchat/backend/internal/service"
)

// ChatHandler handles the chat collection and message exchange endpoints.
// Every route it serves sits behind the session gate, so a session is always
// present in the request context.
type ChatHandler struct {
	service *service.ChatService
}

func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// HandleListChats godoc
// @Summary      List chats
// @Description  Returns the user's chat collection, newest first.
// @Tags         Chats
// @Produce      json
// @Success      200  {array}   model.ChatSummary
// @Failure      500  {object}  ErrorResponse
// @Router       /v1/chats [get]
func (h *ChatHandler) HandleListChats(w http.ResponseWriter, r *http.Request) {
	session := mustSession(r)
	chats, err := h.service.ListChats(r.Context(), session.UserID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, chats)
}

// HandleCreateChat godoc
// @Summary      Start a new chat
// @Description  Creates a fresh, empty chat at the front of the collection.
// @Tags         Chats
// @Produce      json
// @Success      201  {object}  model.Chat
// @Failure      500  {object}  ErrorResponse
// @Router       /v1/chats [post]
func (h *ChatHandler) HandleCreateChat(w http.ResponseWriter, r *http.Request) {
	session := mustSession(r)
	c, err := h.service.CreateChat(r.Context(), session.UserID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}

// HandleGetChat godoc
// @Summary      Load a chat
// @Description  Returns one chat with its full message transcript.
// @Tags         Chats
// @Produce      json
// @Param        chatID  path  string  true  "Chat ID"
// @Success      200  {object}  model.Chat
// @Failure      404  {object}  ErrorResponse
// @Router       /v1/chats/{chatID} [get]
func (h *ChatHandler) HandleGetChat(w http.ResponseWriter, r *http.Request) {
	session := mustSession(r)
	chatID := chi.URLParam(r, "chatID")
	c, err := h.service.GetChat(r.Context(), session.UserID, chatID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

// HandleSendMessage godoc
// @Summary      Send a message
// @Description  Runs one exchange: appends the user message, resolves the bot reply, persists the chat.
// @Tags         Chats
// @Accept       json
// @Produce      json
// @Param        message  body  service.SendMessageRequest  true  "Message"
// @Success      200  {object}  service.SendMessageResult
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /v1/chats/messages [post]
func (h *ChatHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	session := mustSession(r)

	var req service.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request body", app_errors.ErrValidation))
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithError(w, err)
		return
	}

	result, err := h.service.SendMessage(r.Context(), session.UserID, &req)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// HandleSaveMessage godoc
// @Summary      Save a transcript message
// @Description  Best-effort write of one message to the server-side transcript store.
// @Tags         Chats
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        chat_id  formData  string  true  "Chat ID"
// @Param        role     formData  string  true  "user or bot"
// @Param        content  formData  string  true  "Message content"
// @Success      200  {object}  SaveMessageResponse
// @Failure      400  {object}  SaveMessageResponse
// @Router       /v1/messages [post]
func (h *ChatHandler) HandleSaveMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithJSON(w, http.StatusBadRequest, SaveMessageResponse{Success: false, Error: "invalid form payload"})
		return
	}

	err := h.service.SaveTranscript(r.Context(),
		r.PostFormValue("chat_id"),
		r.PostFormValue("role"),
		r.PostFormValue("content"),
	)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, app_errors.ErrValidation) {
			code = http.StatusBadRequest
		}
		respondWithJSON(w, code, SaveMessageResponse{Success: false, Error: err.Error()})
		return
	}
	respondWithJSON(w, http.StatusOK, SaveMessageResponse{Success: true})
}

// mustSession pulls the session the gate middleware put into the context.
// The router guarantees it is there for every ChatHandler route.
func mustSession(r *http.Request) *auth.Session {
	session, _ := auth.SessionFromContext(r.Context())
	return session
}
