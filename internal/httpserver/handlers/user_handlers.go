package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"keycrack/internal/auth"
	"keycrack/internal/jobs"
	"keycrack/internal/models"
)

type userView struct {
	models.User
	JobCount int64 `json:"job_count"`
}

// ListUsers returns every account with the number of jobs it owns.
func ListUsers(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var users []models.User
		if err := db.Preload("Roles").Order("created_at desc").Find(&users).Error; err != nil {
			lg.Errorw("list users failed", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		var counts []struct {
			UserID string
			N      int64
		}
		if err := db.Model(&models.Job{}).Select("user_id, count(*) AS n").Group("user_id").Scan(&counts).Error; err != nil {
			lg.Warnw("job counts failed", "error", err)
		}
		byUser := make(map[string]int64, len(counts))
		for _, c := range counts {
			byUser[c.UserID] = c.N
		}
		out := make([]userView, 0, len(users))
		for _, u := range users {
			out = append(out, userView{User: u, JobCount: byUser[u.ID]})
		}
		respondJSON(w, out)
	}
}

type createUserReq struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

// CreateUser adds an account. Without roles the account is a plain User.
func CreateUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createUserReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if req.Email == "" || req.Password == "" {
			http.Error(w, "email/password required", http.StatusBadRequest)
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Roles) == 0 {
			req.Roles = []string{auth.RoleUser}
		}
		roles, err := findRoles(db, req.Roles)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		now := time.Now()
		u := models.User{Email: req.Email, PasswordHash: hash, IsActive: true, Roles: roles, CreatedAt: now, UpdatedAt: now}
		if err := db.Create(&u).Error; err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		recordAudit(db, lg, auth.Subject(r.Context()), "", "USER_CREATE", map[string]any{"user_id": u.ID, "roles": req.Roles})
		respondJSONStatus(w, http.StatusCreated, map[string]any{"id": u.ID})
	}
}

type updateUserReq struct {
	Email    *string  `json:"email"`
	IsActive *bool    `json:"is_active"`
	Password *string  `json:"password,omitempty"`
	Roles    []string `json:"roles"`
}

// UpdateUser edits an account. Deactivating it revokes its sessions and
// cancels its active jobs.
func UpdateUser(db *gorm.DB, runner *jobs.Runner, store jobs.Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userIDParam(w, r)
		if !ok {
			return
		}
		var req updateUserReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if id == auth.Subject(r.Context()) && req.IsActive != nil && !*req.IsActive {
			http.Error(w, "cannot deactivate yourself", http.StatusBadRequest)
			return
		}
		var hash string
		if req.Password != nil && *req.Password != "" {
			var err error
			if hash, err = auth.HashPassword(*req.Password); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		var u models.User
		if err := db.Preload("Roles").First(&u, "id = ?", id).Error; err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if req.Email != nil {
			u.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		}
		if req.IsActive != nil {
			u.IsActive = *req.IsActive
		}
		if hash != "" {
			u.PasswordHash = hash
		}
		if req.Roles != nil {
			roles, err := findRoles(db, req.Roles)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := db.Model(&u).Association("Roles").Replace(roles); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		u.UpdatedAt = time.Now()
		if err := db.Omit("Roles").Save(&u).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		canceled := 0
		if !u.IsActive {
			db.Model(&models.Session{}).Where("user_id = ? AND revoked_at IS NULL", id).Update("revoked_at", time.Now())
			canceled = cancelUserJobs(r.Context(), runner, store, id, lg)
		}
		recordAudit(db, lg, auth.Subject(r.Context()), "", "USER_UPDATE", map[string]any{"user_id": id, "canceled_jobs": canceled})
		respondJSON(w, map[string]any{"updated": true, "canceled_jobs": canceled})
	}
}

// DeleteUser cancels the account's active jobs and removes it. Finished
// jobs are kept for the audit trail.
func DeleteUser(db *gorm.DB, runner *jobs.Runner, store jobs.Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userIDParam(w, r)
		if !ok {
			return
		}
		if id == auth.Subject(r.Context()) {
			http.Error(w, "cannot delete yourself", http.StatusBadRequest)
			return
		}
		canceled := cancelUserJobs(r.Context(), runner, store, id, lg)
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Session{}).Where("user_id = ?", id).Delete(&models.Session{}).Error; err != nil {
				return err
			}
			u := models.User{ID: id}
			if err := tx.Model(&u).Association("Roles").Clear(); err != nil {
				return err
			}
			return tx.Delete(&u).Error
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		recordAudit(db, lg, auth.Subject(r.Context()), "", "USER_DELETE", map[string]any{"user_id": id, "canceled_jobs": canceled})
		respondJSON(w, map[string]any{"deleted": true, "canceled_jobs": canceled})
	}
}

func userIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := uuid.Validate(id); err != nil {
		http.Error(w, "id must be a valid UUID", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

var errUnknownRole = errors.New("unknown role")

func findRoles(db *gorm.DB, names []string) ([]models.Role, error) {
	var roles []models.Role
	if len(names) == 0 {
		return roles, nil
	}
	if err := db.Where("name IN ?", names).Find(&roles).Error; err != nil {
		return nil, err
	}
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}
	if len(roles) != len(want) {
		return nil, errUnknownRole
	}
	return roles, nil
}

// cancelUserJobs stops every queued or running job owned by userID and
// returns how many were stopped.
func cancelUserJobs(ctx context.Context, runner *jobs.Runner, store jobs.Store, userID string, lg *zap.SugaredLogger) int {
	list, err := store.List(ctx, userID, 1000)
	if err != nil {
		lg.Warnw("list user jobs failed", "user_id", userID, "error", err)
		return 0
	}
	n := 0
	for _, j := range list {
		if j.Status.Terminal() {
			continue
		}
		if runner.Cancel(j.ID) == nil {
			n++
		}
	}
	return n
}
