package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tpeters15/theme-score-nexus/internal/docstore"
	"github.com/tpeters15/theme-score-nexus/internal/model"
)

// handleUploadDocument accepts a multipart upload ("file" field, optional
// "title" and "uploaded_by" fields). The MIME type is sniffed server-side;
// the client's Content-Type is ignored.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	themeID := chi.URLParam(r, "themeID")

	theme, err := s.store.GetTheme(r.Context(), themeID)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if theme == nil {
		writeError(w, http.StatusNotFound, "theme not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, docstore.MaxUploadBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	up, err := docstore.Validate(file, header.Filename)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	path, err := s.docs.Save(r.Context(), themeID, up)
	if err != nil {
		internalError(w, r, err)
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = up.FileName
	}
	doc := &model.ResearchDocument{
		ThemeID:     themeID,
		Title:       title,
		FileName:    up.FileName,
		StoragePath: path,
		MimeType:    up.MimeType,
		SizeBytes:   up.SizeBytes,
		UploadedBy:  r.FormValue("uploaded_by"),
	}
	if err := s.store.CreateDocument(r.Context(), doc); err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	themeID := chi.URLParam(r, "themeID")
	docs, err := s.store.ListDocuments(r.Context(), themeID)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if docs == nil {
		docs = []model.ResearchDocument{}
	}
	writeJSON(w, http.StatusOK, docs)
}
