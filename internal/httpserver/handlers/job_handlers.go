package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"keycrack/internal/auth"
	"keycrack/internal/jobs"
	"keycrack/internal/models"
	"keycrack/internal/pairs"
)

type submitJobReq struct {
	Label string   `json:"label"`
	Rows  []string `json:"rows"` // "0x<plaintext>,0x<ciphertext>"
}

// SubmitJob accepts a pairs file as multipart field "file", or a JSON body
// of rows, and queues a key recovery job.
func SubmitJob(runner *jobs.Runner, db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		var (
			label string
			ps    []pairs.Pair
		)
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			if err := r.ParseMultipartForm(8 << 20); err != nil {
				http.Error(w, "multipart parse error", http.StatusBadRequest)
				return
			}
			file, hdr, err := r.FormFile("file")
			if err != nil {
				http.Error(w, "file required", http.StatusBadRequest)
				return
			}
			defer file.Close()
			label = hdr.Filename
			if ps, err = pairs.Parse(file); err != nil {
				http.Error(w, "parse error: "+err.Error(), http.StatusBadRequest)
				return
			}
		} else {
			var req submitJobReq
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			label = req.Label
			for i, row := range req.Rows {
				p, err := pairs.ParseLine(row)
				if err != nil {
					http.Error(w, fmt.Sprintf("row %d: %v", i, err), http.StatusBadRequest)
					return
				}
				ps = append(ps, p)
			}
		}
		if strings.TrimSpace(label) == "" {
			label = "upload"
		}

		job, err := runner.Submit(r.Context(), uid, label, ps)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		recordAudit(db, lg, uid, job.ID, "JOB_SUBMIT", map[string]any{"label": label, "pairs": len(ps)})
		respondJSONStatus(w, http.StatusAccepted, job)
	}
}

// loadOwnedJob fetches the job named in the URL, hiding jobs of other users
// from non-administrators.
func loadOwnedJob(w http.ResponseWriter, r *http.Request, store jobs.Store) (*models.Job, bool) {
	id := chi.URLParam(r, "id")
	if err := uuid.Validate(id); err != nil {
		http.Error(w, "id must be a valid UUID", http.StatusBadRequest)
		return nil, false
	}
	job, err := store.Get(r.Context(), id)
	if errors.Is(err, jobs.ErrNotFound) {
		http.Error(w, "job not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	c := auth.FromContext(r.Context())
	if job.UserID != c.Subject && !c.HasRole(auth.RoleAdmin) {
		http.Error(w, "job not found", http.StatusNotFound)
		return nil, false
	}
	return job, true
}

func GetJob(store jobs.Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := loadOwnedJob(w, r, store)
		if !ok {
			return
		}
		respondJSON(w, job)
	}
}

// ListJobs returns the caller's recent jobs; administrators may pass
// ?all=1.
func ListJobs(store jobs.Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := auth.FromContext(r.Context())
		uid := c.Subject
		if r.URL.Query().Get("all") == "1" && c.HasRole(auth.RoleAdmin) {
			uid = ""
		}
		list, err := store.List(r.Context(), uid, 100)
		if err != nil {
			lg.Errorw("list jobs failed", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]any{"data": list, "count": len(list)})
	}
}

func CancelJob(runner *jobs.Runner, store jobs.Store, db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := loadOwnedJob(w, r, store)
		if !ok {
			return
		}
		if job.Status.Terminal() {
			http.Error(w, "job already "+string(job.Status), http.StatusConflict)
			return
		}
		if err := runner.Cancel(job.ID); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		recordAudit(db, lg, auth.Subject(r.Context()), job.ID, "JOB_CANCEL", nil)
		respondJSON(w, map[string]any{"canceled": true})
	}
}
