package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clinicops/clinic-core/pkg/database"
	"github.com/clinicops/clinic-core/pkg/logger"
)

// PostgresSink stores entries in the audit_logs table
type PostgresSink struct {
	db *database.DB
}

// NewPostgresSink creates a database-backed sink
func NewPostgresSink(db *database.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// Name implements Sink
func (p *PostgresSink) Name() string { return "postgres" }

// Write implements Sink
func (p *PostgresSink) Write(ctx context.Context, entry *Entry) error {
	var detail []byte
	if len(entry.Detail) > 0 {
		var err error
		detail, err = json.Marshal(entry.Detail)
		if err != nil {
			return fmt.Errorf("failed to marshal audit detail: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (id, actor_id, actor_role, action, target_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := p.db.ExecContext(ctx, query,
		entry.ID,
		entry.ActorID,
		string(entry.ActorRole),
		entry.Action,
		entry.TargetID,
		detail,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// LogSink mirrors entries onto the structured log
type LogSink struct {
	logger *logger.Logger
}

// NewLogSink creates a log-backed sink
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{logger: log}
}

// Name implements Sink
func (l *LogSink) Name() string { return "log" }

// Write implements Sink
func (l *LogSink) Write(ctx context.Context, entry *Entry) error {
	details := map[string]interface{}{
		"audit_id":   entry.ID,
		"actor_role": entry.ActorRole,
		"timestamp":  entry.Timestamp,
	}
	for k, v := range entry.Detail {
		details[k] = v
	}

	success := entry.Action != ActionAuthorizationDenied && entry.Action != ActionAppointmentRejected
	l.logger.Audit(ctx, entry.ActorID, entry.Action, entry.TargetID, success, details)
	return nil
}
