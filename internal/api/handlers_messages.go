package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shohag/nrfcloud/internal/models"
	"github.com/shohag/nrfcloud/internal/storage"
)

const maxPageLimit = 100

type MessageHandler struct {
	store storage.Storage
}

func NewMessageHandler(store storage.Storage) *MessageHandler {
	return &MessageHandler{store: store}
}

type listMessagesResponse struct {
	Items         []models.DeviceMessage `json:"items"`
	Total         int                    `json:"total"`
	PageNextToken string                 `json:"pageNextToken,omitempty"`
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := storage.MessageFilter{
		AppID:    q.Get("appId"),
		DeviceID: q.Get("deviceId"),
		Topic:    q.Get("topic"),
		Sort:     storage.SortDesc,
		Limit:    maxPageLimit,
	}

	var err error
	if v := q.Get("start"); v != "" {
		if filter.Start, err = time.Parse(time.RFC3339, v); err != nil {
			writeError(w, http.StatusBadRequest, "start must be an RFC 3339 timestamp")
			return
		}
	}
	if v := q.Get("end"); v != "" {
		if filter.End, err = time.Parse(time.RFC3339, v); err != nil {
			writeError(w, http.StatusBadRequest, "end must be an RFC 3339 timestamp")
			return
		}
	}
	if v := q.Get("pageLimit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxPageLimit {
			writeError(w, http.StatusBadRequest, "pageLimit must be between 1 and 100")
			return
		}
		filter.Limit = limit
	}
	if v := q.Get("pageNextToken"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, "invalid pageNextToken")
			return
		}
		filter.Offset = offset
	}
	switch v := storage.SortOrder(q.Get("pageSort")); v {
	case "":
	case storage.SortAsc, storage.SortDesc:
		filter.Sort = v
	default:
		writeError(w, http.StatusBadRequest, "pageSort must be asc or desc")
		return
	}

	msgs, more, err := h.store.ListMessages(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	if msgs == nil {
		msgs = []models.DeviceMessage{}
	}

	resp := listMessagesResponse{Items: msgs, Total: len(msgs)}
	if more {
		resp.PageNextToken = strconv.Itoa(filter.Offset + len(msgs))
	}
	writeJSON(w, http.StatusOK, resp)
}
