package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"keycrack/internal/models"
)

func respondJSON(w http.ResponseWriter, v interface{}) {
	respondJSONStatus(w, http.StatusOK, v)
}

func respondJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// recordAudit writes an audit row. db is nil when the server runs without
// persistence.
func recordAudit(db *gorm.DB, lg *zap.SugaredLogger, userID, jobID, action string, md map[string]any) {
	if db == nil {
		return
	}
	row := models.AuditLog{Action: action, Metadata: models.NewJSONB(md)}
	if userID != "" {
		row.UserID = &userID
	}
	if jobID != "" {
		row.JobID = &jobID
	}
	if err := db.Create(&row).Error; err != nil {
		lg.Warnw("audit write failed", "action", action, "error", err)
	}
}
