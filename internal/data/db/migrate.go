package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/tutorbridge-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// EnsurePostgresIndexes adds indexes GORM tags cannot express.
func EnsurePostgresIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"idx_job_run_runnable", `
			CREATE INDEX IF NOT EXISTS idx_job_run_runnable
			ON job_run (status, created_at)
			WHERE deleted_at IS NULL AND status IN ('queued', 'failed', 'running');`},
		{"idx_chat_message_user_topic_seq", `
			CREATE INDEX IF NOT EXISTS idx_chat_message_user_topic_seq
			ON chat_message (user_id, topic_id, created_at)
			WHERE deleted_at IS NULL;`},
		{"idx_topic_summary_latest", `
			CREATE INDEX IF NOT EXISTS idx_topic_summary_latest
			ON topic_summary (student_id, topic_id, created_at DESC);`},
	}
	for _, st := range stmts {
		if err := db.Exec(st.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", st.name, err)
		}
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...", "driver", s.driver)
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if s.IsPostgres() {
		if err := EnsurePostgresIndexes(s.db); err != nil {
			s.log.Error("Index migration failed", "error", err)
			return err
		}
	}
	return nil
}
