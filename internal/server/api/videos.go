package api

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/urdof7/penalty-kick-prediction/internal/app"
	"github.com/urdof7/penalty-kick-prediction/internal/store"
)

// DefaultMaxUpload is the default upload size limit in bytes.
const DefaultMaxUpload = 512 << 20

// VideoHandler handles HTTP requests for video resources.
type VideoHandler struct {
	app       *app.App
	maxUpload int64
	logger    *slog.Logger
}

// NewVideoHandler creates a new VideoHandler. maxUpload <= 0 uses
// DefaultMaxUpload.
func NewVideoHandler(a *app.App, maxUpload int64, logger *slog.Logger) *VideoHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &VideoHandler{app: a, maxUpload: maxUpload, logger: handlerLogger(logger)}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/videos
func (h *VideoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if len(splitPath(r, "/api/videos")) != 0 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.upload(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type videoResponse struct {
	ID           int64  `json:"video_id"`
	OriginalName string `json:"original_name"`
	CreatedAt    string `json:"created_at"`
}

type listVideosResponse struct {
	Videos []videoResponse `json:"videos"`
}

func toVideoResponse(v *store.Video) videoResponse {
	return videoResponse{
		ID:           v.ID,
		OriginalName: v.OriginalName,
		CreatedAt:    v.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// list handles GET /api/videos and returns the session's videos.
func (h *VideoHandler) list(w http.ResponseWriter, r *http.Request) {
	session := sessionID(w, r)
	videos, err := h.app.Store().Videos().ListBySession(r.Context(), session)
	if err != nil {
		writeAppError(w, h.logger, err, "Videos")
		return
	}

	response := listVideosResponse{Videos: make([]videoResponse, 0, len(videos))}
	for i := range videos {
		response.Videos = append(response.Videos, toVideoResponse(&videos[i]))
	}
	writeJSON(w, http.StatusOK, response)
}

// upload handles POST /api/videos with a multipart "video" file.
func (h *VideoHandler) upload(w http.ResponseWriter, r *http.Request) {
	session := sessionID(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	file, header, err := r.FormFile("video")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Video too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Missing video file")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "" || name == "." || name == "/" {
		writeError(w, http.StatusBadRequest, "Missing file name")
		return
	}

	v, err := h.app.AddVideo(r.Context(), session, name, file)
	if err != nil {
		writeAppError(w, h.logger, err, "Video")
		return
	}
	writeJSON(w, http.StatusCreated, toVideoResponse(v))
}

// SessionHandler handles HTTP requests for the session resource.
type SessionHandler struct {
	app    *app.App
	logger *slog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(a *app.App, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{app: a, logger: handlerLogger(logger)}
}

// ServeHTTP handles DELETE /api/session, which removes everything the
// session uploaded.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	n, err := h.app.ClearSession(r.Context(), sessionID(w, r))
	if err != nil {
		writeAppError(w, h.logger, err, "Session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted_videos": n})
}
