package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/cratekeeper/cratekeeper/internal/domain"
)

// ListHistory returns merge/migration audit records, newest first.
// A limit of 0 or less means no limit.
func (s *Store) ListHistory(ctx context.Context, limit int) ([]*domain.MergeRecord, error) {
	query := `SELECT id, primary_id, primary_name, merged_names, status, conflicts, forced, error, notes, created_at
		FROM merge_history ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*domain.MergeRecord{}
	for rows.Next() {
		rec, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanHistory(scanner interface{ Scan(dest ...any) error }) (*domain.MergeRecord, error) {
	var rec domain.MergeRecord
	var (
		mergedNames string
		conflicts   sql.NullString
		status      string
		forced      int
		errMsg      sql.NullString
		notes       sql.NullString
		createdAt   string
	)

	err := scanner.Scan(
		&rec.ID,
		&rec.PrimaryID,
		&rec.PrimaryName,
		&mergedNames,
		&status,
		&conflicts,
		&forced,
		&errMsg,
		&notes,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Status = domain.MergeStatus(status)
	rec.Forced = forced != 0
	rec.Error = errMsg.String
	rec.Notes = notes.String

	if err := json.Unmarshal([]byte(mergedNames), &rec.MergedNames); err != nil {
		return nil, err
	}
	if conflicts.Valid && conflicts.String != "" {
		if err := json.Unmarshal([]byte(conflicts.String), &rec.Conflicts); err != nil {
			return nil, err
		}
	}

	rec.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func appendHistory(ctx context.Context, q dbtx, rec *domain.MergeRecord) error {
	mergedNames, err := json.Marshal(rec.MergedNames)
	if err != nil {
		return err
	}
	var conflicts []byte
	if len(rec.Conflicts) > 0 {
		conflicts, err = json.Marshal(rec.Conflicts)
		if err != nil {
			return err
		}
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO merge_history (id, primary_id, primary_name, merged_names, status, conflicts, forced, error, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.PrimaryID,
		rec.PrimaryName,
		string(mergedNames),
		string(rec.Status),
		nullIfEmpty(string(conflicts)),
		boolToInt(rec.Forced),
		nullIfEmpty(rec.Error),
		nullIfEmpty(rec.Notes),
		formatTime(rec.CreatedAt),
	)
	return mapError(err)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
