package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullUUID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func parseNullUUID(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// normalizeLimit maps "no limit requested" to sqlite's unlimited LIMIT
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
