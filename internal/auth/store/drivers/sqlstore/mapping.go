package sqlstore

import (
	"database/sql"
	"encoding/json"
	"time"
)

// dbTime normalizes timestamps before they reach the database. Postgres keeps
// microseconds, and sqlite compares the text form, so both need UTC and a
// fixed precision.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func nowUTC() time.Time { return dbTime(time.Now()) }

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return nowUTC()
	}
	return dbTime(t)
}

func mapNullStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		val := ns.String
		return &val
	}
	return nil
}

func mapOptionalString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		val := nt.Time.UTC()
		return &val
	}
	return nil
}

func mapOptionalTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: dbTime(*t), Valid: true}
}

// JSON snapshot columns are TEXT on both drivers.
func encodeJSON(v map[string]any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{Valid: false}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeJSON(ns sql.NullString) map[string]any {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return nil
	}
	return out
}
