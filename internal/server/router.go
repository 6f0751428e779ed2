// Package server exposes the editor over HTTP for headless use.
package server

import (
	"context"
	"image"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"blur-wallpaper/internal/core"
	"blur-wallpaper/internal/export"
	"blur-wallpaper/internal/photostore"
)

// maxUploadBytes bounds POST /source bodies.
const maxUploadBytes = 32 << 20

// StockSource hands out the next stock image.
type StockSource interface {
	Next() (*core.SourceImage, error)
}

// ImageCodec decodes uploads and encodes previews.
type ImageCodec interface {
	DecodeImage(r io.Reader) (image.Image, error)
	EncodePNG(w io.Writer, img image.Image) error
}

// Saver runs exports.
type Saver interface {
	Save(ctx context.Context, onState func(export.State)) (export.Result, error)
}

// AssetLister lists saved assets.
type AssetLister interface {
	Assets(ctx context.Context, album string) ([]photostore.Asset, error)
}

type Server struct {
	editor *core.Editor
	stock  StockSource
	codec  ImageCodec
	saver  Saver
	assets AssetLister
	album  string
	logger logrus.FieldLogger
}

func New(editor *core.Editor, stock StockSource, codec ImageCodec, saver Saver, assets AssetLister, album string, logger logrus.FieldLogger) *Server {
	return &Server{
		editor: editor,
		stock:  stock,
		codec:  codec,
		saver:  saver,
		assets: assets,
		album:  album,
		logger: logger,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/state", s.handleState).Methods("GET")
	r.HandleFunc("/preview.png", s.handlePreview).Methods("GET")
	r.HandleFunc("/intensity", s.handleIntensity).Methods("PUT")
	r.HandleFunc("/shuffle", s.handleShuffle).Methods("POST")
	r.HandleFunc("/source", s.handleSource).Methods("POST")
	r.HandleFunc("/save", s.handleSave).Methods("POST")
	r.HandleFunc("/stats", s.handleStats).Methods("GET")
	if s.assets != nil {
		r.HandleFunc("/assets", s.handleAssets).Methods("GET")
		r.HandleFunc("/albums/{album}/assets", s.handleAssets).Methods("GET")
	}
	r.Use(s.logRequests)
	return r
}

// LatestFrame captures the frame the editor delivered last.
func LatestFrame(editor *core.Editor) export.Rasterizer {
	return export.RasterizerFunc(func(context.Context) (image.Image, error) {
		latest := editor.Scheduler.Latest()
		if latest == nil {
			return nil, core.ErrNoImage
		}
		return latest.Image, nil
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Debug("HTTP: Request")
		next.ServeHTTP(w, r)
	})
}
