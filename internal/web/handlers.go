package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/JonMunkholm/fileimport/internal/core"
	"github.com/JonMunkholm/fileimport/internal/fileimport"
	"github.com/JonMunkholm/fileimport/internal/flatrate"
)

// importRequest is the body of POST /api/flatrate/import.
type importRequest struct {
	ClientID          *int64 `json:"clientId"`
	DeleteOldImported bool   `json:"deleteOldImported"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "not configured"}
	if !s.service.HasDatabase() {
		writeJSON(w, resp)
		return
	}

	if err := s.service.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = "unavailable"
		writeJSONStatus(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Database = "ok"
	writeJSON(w, resp)
}

// handlePreview reads the uploaded file and returns its preview.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.formFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	opts := s.service.DefaultPreviewOptions()
	if opts.ReadOptions, err = parseReadOptions(r, opts.ReadOptions); err != nil {
		s.respondError(w, r, err)
		return
	}
	if v := r.FormValue("maxLines"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, r, fmt.Errorf("%w maxLines: %q", errInvalidParam, v))
			return
		}
		opts.MaxLines = n
	}
	if v := r.FormValue("policy"); v != "" {
		if opts.Policy, err = fileimport.ParsePreviewPolicy(v); err != nil {
			s.respondError(w, r, fmt.Errorf("%w policy: %w", errInvalidParam, err))
			return
		}
	}

	result, err := s.service.PreviewFile(r.Context(), header.Filename, file, opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// handleStage loads the uploaded file into the staging table.
func (s *Server) handleStage(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.formFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	opts := s.service.DefaultStageOptions()
	if opts.ReadOptions, err = parseReadOptions(r, opts.ReadOptions); err != nil {
		s.respondError(w, r, err)
		return
	}
	if opts.ClientID, err = parseClientID(r.FormValue("clientId"), opts.ClientID); err != nil {
		s.respondError(w, r, err)
		return
	}
	if v := r.FormValue("delimiter"); v != "" {
		if utf8.RuneCountInString(v) != 1 {
			s.respondError(w, r, fmt.Errorf("%w delimiter: %q", errInvalidParam, v))
			return
		}
		opts.Delimiter, _ = utf8.DecodeRuneInString(v)
	}

	ctx := WithRequestMetadata(r.Context(), r)
	result, err := s.service.StageFlatrate(ctx, header.Filename, file, opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// handleImport runs a flat-rate import for the requested client.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, r, fmt.Errorf("%w body: %v", errInvalidParam, err))
		return
	}

	params := flatrate.Params{
		ClientID:          s.cfg.Import.ClientID,
		DeleteOldImported: req.DeleteOldImported,
	}
	if req.ClientID != nil {
		params.ClientID = *req.ClientID
	}

	ctx := WithRequestMetadata(r.Context(), r)
	result, err := s.service.RunFlatrateImport(ctx, params)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.ImportStatus())
}

// formFile caps the request body and returns the "file" part.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, nil, fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, maxSize)
		}
		return nil, nil, fmt.Errorf("%w form: %v", errInvalidParam, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, errNoFile
	}
	return file, header, nil
}

// parseReadOptions overrides defaults with the read form values that are
// present.
func parseReadOptions(r *http.Request, opts core.ReadOptions) (core.ReadOptions, error) {
	if v := r.FormValue("charset"); v != "" {
		opts.Charset = v
	}
	if v := r.FormValue("quote"); v != "" {
		if utf8.RuneCountInString(v) != 1 {
			return opts, fmt.Errorf("%w quote: %q", errInvalidParam, v)
		}
		opts.Quote, _ = utf8.DecodeRuneInString(v)
	}
	if v := r.FormValue("multiline"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("%w multiline: %q", errInvalidParam, v)
		}
		opts.Multiline = b
	}
	if v := r.FormValue("replaceInvalid"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("%w replaceInvalid: %q", errInvalidParam, v)
		}
		opts.ReplaceInvalid = b
	}
	if v := r.FormValue("mergePolicy"); v != "" {
		p, err := fileimport.ParseMergePolicy(v)
		if err != nil {
			return opts, fmt.Errorf("%w mergePolicy: %w", errInvalidParam, err)
		}
		opts.MergePolicy = p
	}
	return opts, nil
}

func parseClientID(v string, def int64) (int64, error) {
	if v == "" {
		return def, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w clientId: %q", errInvalidParam, v)
	}
	return id, nil
}
