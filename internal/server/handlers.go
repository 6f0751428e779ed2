package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"blur-wallpaper/internal/core"
	"blur-wallpaper/internal/effect"
	"blur-wallpaper/internal/export"
	"blur-wallpaper/internal/photostore"
)

type intensityRequest struct {
	Intensity *float64 `json:"intensity"`
}

type stateResponse struct {
	Intensity  float64 `json:"intensity"`
	Version    uint64  `json:"version"`
	Source     string  `json:"source,omitempty"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	Generation uint64  `json:"generation,omitempty"`
	Pending    bool    `json:"pending"`
}

type saveResponse struct {
	AssetID  string `json:"asset_id"`
	Album    string `json:"album"`
	TipFired bool   `json:"tip_fired"`
}

type errorResponse struct {
	Error       string `json:"error"`
	Recoverable bool   `json:"recoverable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) state() stateResponse {
	snap := s.editor.Store.Current()
	resp := stateResponse{
		Intensity: float64(snap.Intensity),
		Version:   snap.Version,
		Pending:   s.editor.Scheduler.Pending(),
	}
	if snap.Source != nil {
		resp.Source = snap.Source.Name()
		resp.Width = snap.Source.Width()
		resp.Height = snap.Source.Height()
	}
	if latest := s.editor.Scheduler.Latest(); latest != nil {
		resp.Generation = latest.Generation
	}
	return resp
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	latest := s.editor.Scheduler.Latest()
	if latest == nil {
		writeError(w, http.StatusNotFound, errors.New("no preview rendered yet"))
		return
	}

	var buf bytes.Buffer
	if err := s.codec.EncodePNG(&buf, latest.Image); err != nil {
		s.logger.WithError(err).Error("HTTP: Failed to encode preview")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (s *Server) handleIntensity(w http.ResponseWriter, r *http.Request) {
	var req intensityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Intensity == nil {
		writeError(w, http.StatusBadRequest, errors.New("missing intensity"))
		return
	}

	if _, err := s.editor.SetIntensity(effect.Intensity(*req.Intensity)); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleShuffle(w http.ResponseWriter, r *http.Request) {
	src, err := s.stock.Next()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.editor.SetSource(src); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	img, err := s.codec.DecodeImage(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}
	src, err := core.NewSourceImage(img, name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.editor.SetSource(src); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	res, err := s.saver.Save(r.Context(), nil)
	if err != nil {
		var denied *export.PermissionDeniedError
		switch {
		case errors.As(err, &denied):
			writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error(), Recoverable: denied.RecoveryAvailable})
		case errors.Is(err, export.ErrRasterization):
			writeError(w, http.StatusConflict, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, saveResponse{AssetID: res.AssetID, Album: res.Album, TipFired: res.TipFired})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.editor.Scheduler.Stats())
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	album, ok := mux.Vars(r)["album"]
	if !ok {
		album = s.album
	}
	assets, err := s.assets.Assets(r.Context(), album)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if assets == nil {
		assets = []photostore.Asset{}
	}
	writeJSON(w, http.StatusOK, assets)
}
