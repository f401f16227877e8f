package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/upstream"
)

const (
	// maxUploadMemory is how much of a multipart upload is buffered in memory;
	// the rest spills to temporary files.
	maxUploadMemory = 32 << 20
	// maxQueryBody bounds the JSON body of /query.
	maxQueryBody = 1 << 20

	defaultDocumentsLimit = 50
	maxDocumentsLimit     = 1000
)

// ErrIndexEmpty is the message returned by /query before anything was ingested.
const ErrIndexEmpty = "Index is empty. Upload documents first."

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.respondError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	files := make([]indexer.File, 0, len(headers))
	results := make(map[string]models.UploadResult, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			results[h.Filename] = models.Failed(err)
			continue
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			results[h.Filename] = models.Failed(err)
			continue
		}
		files = append(files, indexer.File{Name: h.Filename, Content: content})
	}
	s.logger.Debug("upload request", zap.Int("files", len(headers)))

	for name, res := range s.indexer.IngestFiles(r.Context(), files) {
		results[name] = res
	}
	s.respondJSON(w, http.StatusOK, results)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxQueryBody)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("query request", zap.String("question", req.Question), zap.Int("top_k", req.TopK))

	resp, ok, err := s.engine.Answer(r.Context(), req)
	switch {
	case errors.Is(err, models.ErrEmptyQuestion):
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		if upstream.Is(err) {
			s.logger.Error("query failed upstream", zap.Error(err))
			s.respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		s.logger.Error("query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	case !ok:
		s.respondError(w, http.StatusNotFound, ErrIndexEmpty)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, models.InfoResponse{Vectors: s.index.Size()})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		s.respondError(w, http.StatusNotImplemented, "document registry not enabled")
		return
	}
	limit := queryInt(r, "limit", defaultDocumentsLimit)
	if limit <= 0 || limit > maxDocumentsLimit {
		limit = defaultDocumentsLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	docs, err := s.registry.List(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, docs)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := models.StatusResponse{
		Vectors:   s.index.Size(),
		Dimension: s.index.Dimension(),
	}
	if s.registry != nil {
		docs, err := s.registry.CountDocuments(ctx)
		if err != nil {
			s.logger.Error("status: count documents failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		chunks, err := s.registry.CountChunks(ctx)
		if err != nil {
			s.logger.Error("status: count chunks failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Documents, resp.Chunks = int(docs), int(chunks)
	}
	if n, err := storage.DiskUsageBytes(s.config.Storage.IndexDir); err == nil {
		resp.IndexDiskBytes = n
	}
	if path := s.config.Storage.DatabasePath; path != "" {
		if n, err := storage.DiskUsageBytes(storage.DatabaseFiles(path)...); err == nil {
			resp.DBDiskBytes = n
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
