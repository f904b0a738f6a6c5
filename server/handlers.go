package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/xhad/sourcebook/pkg/apperr"
	"github.com/xhad/sourcebook/pkg/chat"
	"github.com/xhad/sourcebook/pkg/ingest"
	"github.com/xhad/sourcebook/pkg/processor"
)

type ingestResponse struct {
	Success    bool   `json:"success"`
	Chunks     int    `json:"chunks"`
	SourceName string `json:"sourceName"`
	SourceType string `json:"sourceType"`
}

type chatRequest struct {
	Messages    []chat.Message `json:"messages"`
	WorkspaceID string         `json:"workspaceId"`
	NotebookID  string         `json:"notebookId"`
}

type notebookRequest struct {
	WorkspaceID string `json:"workspaceId"`
	NotebookID  string `json:"notebookId"`
}

func workspaceOf(workspaceID, notebookID string) string {
	if workspaceID != "" {
		return workspaceID
	}
	return notebookID
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		writeError(w, apperr.Validation("ingest", "Invalid multipart form: "+err.Error()))
		return
	}

	req := ingest.Request{
		WorkspaceID: workspaceOf(r.FormValue("workspaceId"), r.FormValue("notebookId")),
		GitHubURL:   r.FormValue("githubUrl"),
		Text:        r.FormValue("text"),
	}

	if headers := r.MultipartForm.File["file"]; len(headers) > 0 {
		upload, err := readUpload(headers[0])
		if err != nil {
			writeError(w, err)
			return
		}
		req.File = &upload
	}
	for _, fh := range r.MultipartForm.File["files"] {
		upload, err := readUpload(fh)
		if err != nil {
			writeError(w, err)
			return
		}
		req.Files = append(req.Files, upload)
	}

	result, err := s.ingest.Ingest(r.Context(), req)
	if err != nil {
		log.Printf("Ingestion error: %v", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Success:    true,
		Chunks:     result.Chunks,
		SourceName: result.SourceLabel,
		SourceType: string(result.SourceType),
	})
}

func readUpload(fh *multipart.FileHeader) (processor.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return processor.Upload{}, apperr.Validation("ingest", "failed to open upload "+fh.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return processor.Upload{}, apperr.Validation("ingest", "failed to read upload "+fh.Filename)
	}

	return processor.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("chat", "Invalid JSON body"))
		return
	}

	answer, err := s.chat.Reply(r.Context(), workspaceOf(req.WorkspaceID, req.NotebookID), req.Messages)
	if err != nil {
		log.Printf("Chat error: %v", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) decodeNotebook(w http.ResponseWriter, r *http.Request, op string) (string, bool) {
	var req notebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, apperr.Validation(op, "Invalid JSON body"))
		return "", false
	}

	ws := workspaceOf(req.WorkspaceID, req.NotebookID)
	if ws == "" {
		writeError(w, apperr.Validation(op, "Workspace ID is required"))
		return "", false
	}
	return ws, true
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.decodeNotebook(w, r, "overview")
	if !ok {
		return
	}

	overview, err := s.insights.Overview(r.Context(), ws)
	if err != nil {
		log.Printf("Synthesis error: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleMindMap(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.decodeNotebook(w, r, "mindmap")
	if !ok {
		return
	}

	mindMap, err := s.insights.MindMap(r.Context(), ws)
	if err != nil {
		log.Printf("Mindmap error: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mindMap)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(err), map[string]string{"error": apperr.Message(err)})
}
