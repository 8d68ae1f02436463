package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gardenDesignAi/internal/conversation"
	"gardenDesignAi/internal/events"
	"gardenDesignAi/internal/metrics"
	"gardenDesignAi/internal/vision"
)

const maxFormMemory = vision.MaxImageBytes + (1 << 20)

var errImageTooLarge = fmt.Errorf("image exceeds %d bytes", vision.MaxImageBytes)

type handler struct {
	store   *conversation.Store
	engine  *conversation.Engine
	events  *events.Broker
	metrics *metrics.Recorder
	logger  *zap.Logger
}

// replyView is the JSON form of a reply. Images without a published URL are served by the
// session image endpoint.
type replyView struct {
	Kind     conversation.ReplyKind `json:"kind"`
	Text     string                 `json:"text,omitempty"`
	ImageURL string                 `json:"image_url,omitempty"`
}

type turnResponse struct {
	Session  conversation.Snapshot  `json:"session"`
	Replies  []replyView            `json:"replies"`
	Starters []conversation.Starter `json:"starters,omitempty"`
}

type messageRequest struct {
	Text        string `json:"text"`
	ImageBase64 string `json:"image_base64"`
	ImageMIME   string `json:"image_mime"`
}

func (h *handler) starters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, conversation.Starters)
}

func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	s := h.store.Create()
	h.metrics.Sessions(h.store.Count())

	var resp turnResponse
	err := h.store.Do(r.Context(), s.ID, func(s *conversation.Session) error {
		replies := h.engine.Start(r.Context(), s)
		resp = turnResponse{Session: s.Snapshot(), Replies: views(s.ID, replies), Starters: conversation.Starters}
		return nil
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Info("session created", zap.String("session_id", s.ID))
	writeJSON(w, http.StatusCreated, resp)
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	var snap conversation.Snapshot
	err := h.store.Do(r.Context(), chi.URLParam(r, "id"), func(s *conversation.Session) error {
		snap = s.Snapshot()
		return nil
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.store.Delete(chi.URLParam(r, "id")) {
		h.fail(w, conversation.ErrSessionNotFound)
		return
	}
	h.metrics.Sessions(h.store.Count())
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) postMessage(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInbound(r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errImageTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		http.Error(w, err.Error(), status)
		return
	}

	resp, err := h.turn(r, chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) turn(r *http.Request, id string, in conversation.Inbound) (turnResponse, error) {
	var resp turnResponse
	err := h.store.Do(r.Context(), id, func(s *conversation.Session) error {
		replies := h.engine.Handle(r.Context(), s, in)
		resp = turnResponse{Session: s.Snapshot(), Replies: views(s.ID, replies)}
		return nil
	})
	return resp, err
}

func (h *handler) getImage(w http.ResponseWriter, r *http.Request) {
	var img conversation.Image
	found := false
	err := h.store.Do(r.Context(), chi.URLParam(r, "id"), func(s *conversation.Session) error {
		img, found = s.Image(chi.URLParam(r, "kind"))
		return nil
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	if !found {
		http.Error(w, "image not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", img.MIME)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(img.Data)
}

func (h *handler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, conversation.ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	h.logger.Error("request failed", zap.Error(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// decodeInbound accepts multipart (text, image) or JSON (text, image_base64) bodies.
func decodeInbound(r *http.Request) (conversation.Inbound, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return decodeMultipart(r)
	}

	var payload messageRequest
	defer r.Body.Close()
	if err := json.NewDecoder(io.LimitReader(r.Body, maxFormMemory*2)).Decode(&payload); err != nil {
		return conversation.Inbound{}, fmt.Errorf("invalid JSON payload: %w", err)
	}
	in := conversation.Inbound{Text: payload.Text}
	if payload.ImageBase64 == "" {
		return in, nil
	}
	img, err := decodeBase64Image(payload.ImageBase64, payload.ImageMIME)
	if err != nil {
		return conversation.Inbound{}, err
	}
	in.Attachments = []conversation.Attachment{img}
	return in, nil
}

func decodeMultipart(r *http.Request) (conversation.Inbound, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return conversation.Inbound{}, fmt.Errorf("invalid multipart payload: %w", err)
	}
	in := conversation.Inbound{Text: strings.TrimSpace(r.FormValue("text"))}

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return in, nil
		}
		return conversation.Inbound{}, fmt.Errorf("could not read image: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, vision.MaxImageBytes+1))
	if err != nil {
		return conversation.Inbound{}, fmt.Errorf("could not read image: %w", err)
	}
	if len(data) > vision.MaxImageBytes {
		return conversation.Inbound{}, errImageTooLarge
	}
	in.Attachments = []conversation.Attachment{{
		Name: header.Filename,
		MIME: vision.DetectMIME(data, header.Header.Get("Content-Type")),
		Data: data,
	}}
	return in, nil
}

func decodeBase64Image(encoded, mimeType string) (conversation.Attachment, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return conversation.Attachment{}, fmt.Errorf("invalid image_base64: %w", err)
	}
	if len(data) > vision.MaxImageBytes {
		return conversation.Attachment{}, errImageTooLarge
	}
	return conversation.Attachment{Name: "image", MIME: vision.DetectMIME(data, mimeType), Data: data}, nil
}

func views(sessionID string, replies []conversation.Reply) []replyView {
	out := make([]replyView, 0, len(replies))
	for _, reply := range replies {
		v := replyView{Kind: reply.Kind, Text: reply.Text, ImageURL: reply.ImageURL}
		if v.ImageURL == "" && reply.Image != nil && !reply.Image.Empty() {
			v.ImageURL = "/api/sessions/" + sessionID + "/images/current"
		}
		out = append(out, v)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
