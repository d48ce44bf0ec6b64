package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/urdof7/penalty-kick-prediction/internal/app"
	"github.com/urdof7/penalty-kick-prediction/internal/store"
)

// KickHandler handles HTTP requests for kick resources.
type KickHandler struct {
	app    *app.App
	logger *slog.Logger
}

// NewKickHandler creates a new KickHandler.
func NewKickHandler(a *app.App, logger *slog.Logger) *KickHandler {
	return &KickHandler{app: a, logger: handlerLogger(logger)}
}

// ServeHTTP implements the http.Handler interface and routes requests to
// appropriate methods. Every kick is scoped to the session of its video.
// Expected paths: /api/kicks, /api/kicks/{id}, /api/kicks/{id}/{action}
// and /api/kicks/{id}/frames/{n}
func (h *KickHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r, "/api/kicks")
	session := sessionID(w, r)

	if len(parts) == 0 {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.create(w, r, session)
		return
	}

	id, ok := parseID(parts[0])
	if !ok || len(parts) > 3 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	if len(parts) == 3 {
		frameNo, err := strconv.ParseUint(parts[2], 10, 32)
		switch {
		case parts[1] != "frames" || err != nil || frameNo == 0:
			writeError(w, http.StatusNotFound, "Not found")
		case r.Method != http.MethodGet:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		default:
			h.frame(w, r, session, id, uint32(frameNo))
		}
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.get(w, r, session, id)
	case action == "poses" && r.Method == http.MethodPost:
		h.detect(w, r, session, id)
	case action == "features" && r.Method == http.MethodGet:
		h.features(w, r, session, id)
	case action == "predict" && r.Method == http.MethodPost:
		h.predict(w, r, session, id)
	case action == "" || action == "poses" || action == "features" || action == "predict":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type kickResponse struct {
	ID         int64   `json:"kick_id"`
	VideoID    int64   `json:"video_id"`
	Timestamp  float64 `json:"timestamp"`
	Direction  *int    `json:"kick_direction"`
	PlayerName string  `json:"player_name"`
	PlayerTeam string  `json:"player_team"`
	GoalScored *bool   `json:"goal_scored"`
	Frames     int     `json:"frames,omitempty"`
}

func toKickResponse(k *store.Kick, frames int) kickResponse {
	return kickResponse{
		ID:         k.ID,
		VideoID:    k.VideoID,
		Timestamp:  k.Timestamp,
		Direction:  k.Direction,
		PlayerName: k.PlayerName,
		PlayerTeam: k.PlayerTeam,
		GoalScored: k.GoalScored,
		Frames:     frames,
	}
}

// create handles POST /api/kicks: it registers the kick and extracts its
// frames.
func (h *KickHandler) create(w http.ResponseWriter, r *http.Request, session string) {
	var req app.KickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	kick, frames, err := h.app.CreateKick(r.Context(), session, req)
	if errors.Is(err, store.ErrDuplicate) {
		writeError(w, http.StatusConflict, "Kick already exists at this timestamp")
		return
	}
	if err != nil {
		writeAppError(w, h.logger, err, "Video")
		return
	}
	writeJSON(w, http.StatusCreated, toKickResponse(kick, len(frames)))
}

// get handles GET /api/kicks/{id}.
func (h *KickHandler) get(w http.ResponseWriter, r *http.Request, session string, id int64) {
	kick, frames, err := h.app.Kick(r.Context(), session, id)
	if err != nil {
		writeAppError(w, h.logger, err, "Kick")
		return
	}
	writeJSON(w, http.StatusOK, toKickResponse(kick, len(frames)))
}

// detect handles POST /api/kicks/{id}/poses.
func (h *KickHandler) detect(w http.ResponseWriter, r *http.Request, session string, id int64) {
	result, err := h.app.DetectPoses(r.Context(), session, id)
	if err != nil {
		writeAppError(w, h.logger, err, "Kick")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// features handles GET /api/kicks/{id}/features.
func (h *KickHandler) features(w http.ResponseWriter, r *http.Request, session string, id int64) {
	kf, err := h.app.EngineeredFeatures(r.Context(), session, id)
	if err != nil {
		writeAppError(w, h.logger, err, "Kick")
		return
	}
	writeJSON(w, http.StatusOK, kf)
}

// predict handles POST /api/kicks/{id}/predict.
func (h *KickHandler) predict(w http.ResponseWriter, r *http.Request, session string, id int64) {
	pred, err := h.app.PredictKick(r.Context(), session, id)
	if err != nil {
		writeAppError(w, h.logger, err, "Kick")
		return
	}
	writeJSON(w, http.StatusOK, pred)
}

// frame handles GET /api/kicks/{id}/frames/{n}. With ?annotated=1 the
// detected skeleton is drawn over the frame.
func (h *KickHandler) frame(w http.ResponseWriter, r *http.Request, session string, id int64, frameNo uint32) {
	annotated, _ := strconv.ParseBool(r.URL.Query().Get("annotated"))

	data, err := h.app.FrameImage(r.Context(), session, id, frameNo, annotated)
	if err != nil {
		writeAppError(w, h.logger, err, "Frame")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
