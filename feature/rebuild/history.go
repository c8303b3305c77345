package rebuild

import (
	"errors"
	"fmt"
	"strings"
	"time"

	core "regen/core/rebuild"

	"gorm.io/gorm"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one persisted rebuild run.
type RunRecord struct {
	ID          string        `gorm:"column:id;primaryKey;size:36" json:"id"`
	Status      string        `gorm:"column:status;size:16" json:"status"`
	MetadataDir string        `gorm:"column:metadata_dir" json:"metadata_dir"`
	LayersDir   string        `gorm:"column:layers_dir" json:"layers_dir"`
	OutputDir   string        `gorm:"column:output_dir" json:"output_dir"`
	Total       int           `gorm:"column:total" json:"total"`
	Processed   int           `gorm:"column:processed" json:"processed"`
	Success     int           `gorm:"column:success" json:"success"`
	Partial     int           `gorm:"column:partial" json:"partial"`
	Failed      int           `gorm:"column:failed" json:"failed"`
	Skipped     int           `gorm:"column:skipped" json:"skipped"`
	AbortReason string        `gorm:"column:abort_reason" json:"abort_reason,omitempty"`
	StartedAt   time.Time     `gorm:"column:started_at;index" json:"started_at"`
	FinishedAt  time.Time     `gorm:"column:finished_at" json:"finished_at"`
	Tokens      []TokenRecord `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"tokens,omitempty"`
}

// TableName sets the table name for GORM.
func (RunRecord) TableName() string {
	return "rebuild_runs"
}

// TokenRecord is the persisted outcome of one token.
type TokenRecord struct {
	ID         uint   `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	RunID      string `gorm:"column:run_id;size:36;index" json:"run_id"`
	TokenID    string `gorm:"column:token_id" json:"token_id"`
	Source     string `gorm:"column:source" json:"source"`
	Status     string `gorm:"column:status;size:16" json:"status"`
	Output     string `gorm:"column:output" json:"output,omitempty"`
	Unresolved string `gorm:"column:unresolved" json:"unresolved,omitempty"`
	Reason     string `gorm:"column:reason" json:"reason,omitempty"`
	DurationMS int64  `gorm:"column:duration_ms" json:"duration_ms"`
}

// TableName sets the table name for GORM.
func (TokenRecord) TableName() string {
	return "rebuild_tokens"
}

// HistoryTables maps each history table to the columns it must have.
var HistoryTables = map[string][]string{
	"rebuild_runs": {"id", "status", "metadata_dir", "layers_dir", "output_dir", "total", "processed",
		"success", "partial", "failed", "skipped", "abort_reason", "started_at", "finished_at"},
	"rebuild_tokens": {"id", "run_id", "token_id", "source", "status", "output", "unresolved", "reason", "duration_ms"},
}

// History stores finished runs in the database.
type History struct {
	db *gorm.DB
}

// NewHistory wraps db. Call Migrate once before use.
func NewHistory(db *gorm.DB) *History {
	return &History{db: db}
}

// DB returns the underlying connection.
func (h *History) DB() *gorm.DB {
	return h.db
}

// Migrate creates or updates the history tables.
func (h *History) Migrate() error {
	return h.db.AutoMigrate(&RunRecord{}, &TokenRecord{})
}

// Save records a finished run with all its token outcomes.
func (h *History) Save(req core.Request, s *core.Summary) error {
	if s == nil {
		return nil
	}
	run := RunRecord{
		ID:          s.RunID,
		Status:      runStatus(s),
		MetadataDir: req.MetadataDir,
		LayersDir:   req.LayersDir,
		OutputDir:   req.OutputDir,
		Total:       s.Total,
		Processed:   s.Processed,
		Success:     s.Success,
		Partial:     s.Partial,
		Failed:      s.Failed,
		Skipped:     s.Skipped,
		AbortReason: s.AbortReason,
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
	}
	for _, r := range s.Results {
		run.Tokens = append(run.Tokens, tokenRecord(s.RunID, r))
	}

	return h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tokens").Create(&run).Error; err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		if len(run.Tokens) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(run.Tokens, 500).Error; err != nil {
			return fmt.Errorf("failed to save run tokens: %w", err)
		}
		return nil
	})
}

// List returns runs without tokens, newest first. limit <= 0 means 50.
func (h *History) List(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []RunRecord
	if err := h.db.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Get returns one run with its tokens.
func (h *History) Get(id string) (*RunRecord, error) {
	var run RunRecord
	err := h.db.Preload("Tokens", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return &run, nil
}

func runStatus(s *core.Summary) string {
	switch {
	case s.Aborted:
		return string(StateAborted)
	case s.Cancelled:
		return string(StateCancelled)
	default:
		return string(StateFinished)
	}
}

func tokenRecord(runID string, r core.Result) TokenRecord {
	missing := make([]string, len(r.Unresolved))
	for i, m := range r.Unresolved {
		missing[i] = m.Category + "/" + m.Value
	}
	return TokenRecord{
		RunID:      runID,
		TokenID:    r.TokenID,
		Source:     r.Source,
		Status:     string(r.Status),
		Output:     r.Output,
		Unresolved: strings.Join(missing, ", "),
		Reason:     r.Reason,
		DurationMS: r.Duration.Milliseconds(),
	}
}
