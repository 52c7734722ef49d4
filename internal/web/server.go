// Package web is the HTTP transport boundary: multipart upload in, paginated
// ranked rows out. All analysis work happens in the driver; handlers only
// translate between HTTP and the store.
package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cognicore/termstat/pkg/termstat/driver"
	"github.com/cognicore/termstat/pkg/termstat/store"
)

const defaultPageSize = 10

// maxMultipartMemory bounds how much of a parsed upload stays in memory.
const maxMultipartMemory = 32 << 20

// Server exposes the upload and results endpoints.
type Server struct {
	driver   *driver.Driver
	store    store.Store
	pageSize int
	log      *logrus.Entry
	mux      *http.ServeMux
}

// NewServer wires the HTTP handlers. pageSize <= 0 selects the default of 10
// rows per page.
func NewServer(d *driver.Driver, st store.Store, pageSize int, logger *logrus.Logger) *Server {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Server{
		driver:   d,
		store:    st,
		pageSize: pageSize,
		log:      logger.WithField("component", "web"),
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /upload", s.handleUpload)
	s.mux.HandleFunc("GET /results/{id}", s.handleResults)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

type uploadResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

type wordInfo struct {
	Word            string  `json:"word"`
	TF              int     `json:"tf"`
	DF              int     `json:"df"`
	IDF             float64 `json:"idf"`
	DocumentSources string  `json:"document_sources"`
}

type resultsResponse struct {
	Items []wordInfo `json:"items"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Pages int        `json:"pages"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// handleUpload accepts one or more text files under the "file" multipart
// field and answers 202 with the task identifier.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var uploads []driver.Upload
	for _, header := range r.MultipartForm.File["file"] {
		file, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("cannot open %s", header.Filename))
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("cannot read %s", header.Filename))
			return
		}
		uploads = append(uploads, driver.Upload{Filename: header.Filename, Data: data})
	}

	taskID, err := s.driver.Submit(r.Context(), uploads)
	if err != nil {
		var verr *driver.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Reason)
			return
		}
		s.log.WithError(err).Error("submission failed")
		writeError(w, http.StatusInternalServerError, "submission failed")
		return
	}

	writeJSON(w, http.StatusAccepted, uploadResponse{
		TaskID:  taskID,
		Message: "File upload successful. Processing started.",
	})
}

// handleResults answers one of: 404 unknown task, 202 still processing,
// 500 with the stored failure message, or a page of ranked rows.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("id")

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = parsed
	}

	ctx := r.Context()
	task, found, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		s.log.WithError(err).WithField("task_id", taskID).Error("task lookup failed")
		writeError(w, http.StatusInternalServerError, "task lookup failed")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Analysis not found")
		return
	}

	switch task.Status {
	case store.StatusPending:
		writeError(w, http.StatusAccepted, "Analysis is still processing")
		return
	case store.StatusFailed:
		detail := task.Error
		if detail == "" {
			detail = "An error occurred during processing"
		}
		writeError(w, http.StatusInternalServerError, detail)
		return
	}

	total, err := s.store.CountRows(ctx, taskID)
	if err != nil {
		s.log.WithError(err).WithField("task_id", taskID).Error("row count failed")
		writeError(w, http.StatusInternalServerError, "row lookup failed")
		return
	}

	pages := (total + s.pageSize - 1) / s.pageSize
	if pages > 0 && page > pages {
		page = pages
	}

	rows, err := s.store.GetRows(ctx, taskID, (page-1)*s.pageSize, s.pageSize)
	if err != nil {
		s.log.WithError(err).WithField("task_id", taskID).Error("row fetch failed")
		writeError(w, http.StatusInternalServerError, "row lookup failed")
		return
	}

	items := make([]wordInfo, len(rows))
	for i, row := range rows {
		items[i] = wordInfo{
			Word:            row.Term,
			TF:              row.TF,
			DF:              row.DF,
			IDF:             row.IDF,
			DocumentSources: formatSources(row.Sources),
		}
	}

	writeJSON(w, http.StatusOK, resultsResponse{
		Items: items,
		Total: total,
		Page:  page,
		Pages: pages,
	})
}

// formatSources renders a row's source map as "doc1.txt(3), doc2.txt(2)",
// in first-encountered document order.
func formatSources(sources []store.Source) string {
	parts := make([]string, len(sources))
	for i, src := range sources {
		parts[i] = fmt.Sprintf("%s(%d)", src.Document, src.Count)
	}
	return strings.Join(parts, ", ")
}
