// Package sqlite persists depth-trace sessions and per-frame trace records.
//
// All database read/write operations for trace history live here rather
// than in the core package, keeping the tracer free of SQL noise. Records
// feed the convergence reports and offline tuning analysis.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/depth.report/internal/dvo"
)

// Session represents one tracing run over an image sequence.
type Session struct {
	SessionID      string          `json:"session_id"`
	CameraLabel    string          `json:"camera_label"`
	Width          int             `json:"width"`
	Height         int             `json:"height"`
	ParamsJSON     json.RawMessage `json:"params_json,omitempty"`
	CreatedAtNanos int64           `json:"created_at_nanos"`
}

// TraceRecord is the persisted outcome of one trace of one point against
// one target frame. An unbounded far depth is stored as NULL.
type TraceRecord struct {
	ID            int64   `json:"id"`
	SessionID     string  `json:"session_id"`
	PointID       int64   `json:"point_id"`
	FrameID       string  `json:"frame_id"`
	Status        string  `json:"status"`
	IdepthMin     float64 `json:"idepth_min"`
	IdepthMax     float64 `json:"idepth_max"` // +Inf when unbounded
	Quality       float64 `json:"quality"`
	MatchU        float64 `json:"match_u"`
	MatchV        float64 `json:"match_v"`
	PixelInterval float64 `json:"pixel_interval"`
	TSUnixNanos   int64   `json:"ts_unix_nanos"`
}

// TraceStore provides persistence for trace sessions and records.
type TraceStore struct {
	db *sql.DB
}

// NewTraceStore creates a TraceStore backed by the given database.
func NewTraceStore(db *sql.DB) *TraceStore {
	return &TraceStore{db: db}
}

// Open opens (or creates) a trace database and applies migrations.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open trace db: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InsertSession persists a new session. If SessionID is empty, a UUID is
// generated.
func (s *TraceStore) InsertSession(sess *Session) error {
	if sess.SessionID == "" {
		sess.SessionID = uuid.New().String()
	}
	if sess.CreatedAtNanos == 0 {
		sess.CreatedAtNanos = time.Now().UnixNano()
	}

	var paramsStr interface{}
	if len(sess.ParamsJSON) > 0 {
		paramsStr = string(sess.ParamsJSON)
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO trace_sessions (
				session_id, camera_label, width, height, params_json, created_at_nanos
			) VALUES (?, ?, ?, ?, ?, ?)`,
			sess.SessionID, sess.CameraLabel, sess.Width, sess.Height,
			paramsStr, sess.CreatedAtNanos,
		)
		return err
	})
}

// InsertRecord persists a single trace record.
func (s *TraceStore) InsertRecord(rec *TraceRecord) error {
	var idepthMax interface{}
	if !math.IsInf(rec.IdepthMax, 1) {
		idepthMax = rec.IdepthMax
	}

	return retryOnBusy(func() error {
		res, err := s.db.Exec(`
			INSERT INTO trace_records (
				session_id, point_id, frame_id, status,
				idepth_min, idepth_max, quality,
				match_u, match_v, pixel_interval, ts_unix_nanos
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.SessionID, rec.PointID, rec.FrameID, rec.Status,
			rec.IdepthMin, idepthMax, rec.Quality,
			rec.MatchU, rec.MatchV, rec.PixelInterval, rec.TSUnixNanos,
		)
		if err != nil {
			return err
		}
		rec.ID, _ = res.LastInsertId()
		return nil
	})
}

// RecordTrace snapshots a point's state after a Trace call.
func (s *TraceStore) RecordTrace(sessionID string, pointID int64, frameID string, p *dvo.Point, tsNanos int64) error {
	return s.InsertRecord(&TraceRecord{
		SessionID:     sessionID,
		PointID:       pointID,
		FrameID:       frameID,
		Status:        string(p.Status),
		IdepthMin:     p.IdepthMin,
		IdepthMax:     p.IdepthMax,
		Quality:       p.Quality,
		MatchU:        p.LastTraceU,
		MatchV:        p.LastTraceV,
		PixelInterval: p.LastTracePixelInterval,
		TSUnixNanos:   tsNanos,
	})
}

// GetSession returns a session by ID.
func (s *TraceStore) GetSession(sessionID string) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT session_id, camera_label, width, height, params_json, created_at_nanos
		FROM trace_sessions WHERE session_id = ?`, sessionID)

	var sess Session
	var paramsStr sql.NullString
	err := row.Scan(&sess.SessionID, &sess.CameraLabel, &sess.Width, &sess.Height,
		&paramsStr, &sess.CreatedAtNanos)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	if paramsStr.Valid {
		sess.ParamsJSON = json.RawMessage(paramsStr.String)
	}
	return &sess, nil
}

// ListRecords returns all records for a session, oldest first. Pass a
// negative pointID to list records for every point.
func (s *TraceStore) ListRecords(sessionID string, pointID int64) ([]*TraceRecord, error) {
	query := `
		SELECT id, session_id, point_id, frame_id, status,
		       idepth_min, idepth_max, quality,
		       match_u, match_v, pixel_interval, ts_unix_nanos
		FROM trace_records
		WHERE session_id = ?`
	args := []interface{}{sessionID}
	if pointID >= 0 {
		query += ` AND point_id = ?`
		args = append(args, pointID)
	}
	query += ` ORDER BY ts_unix_nanos ASC, id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trace records: %w", err)
	}
	defer rows.Close()

	var recs []*TraceRecord
	for rows.Next() {
		var r TraceRecord
		var idepthMax sql.NullFloat64
		err := rows.Scan(&r.ID, &r.SessionID, &r.PointID, &r.FrameID, &r.Status,
			&r.IdepthMin, &idepthMax, &r.Quality,
			&r.MatchU, &r.MatchV, &r.PixelInterval, &r.TSUnixNanos)
		if err != nil {
			return nil, fmt.Errorf("scan trace record: %w", err)
		}
		if idepthMax.Valid {
			r.IdepthMax = idepthMax.Float64
		} else {
			r.IdepthMax = math.Inf(1)
		}
		recs = append(recs, &r)
	}
	return recs, rows.Err()
}

// ListSessions returns the most recent sessions, newest first.
func (s *TraceStore) ListSessions(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT session_id, camera_label, width, height, params_json, created_at_nanos
		FROM trace_sessions
		ORDER BY created_at_nanos DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		var paramsStr sql.NullString
		err := rows.Scan(&sess.SessionID, &sess.CameraLabel, &sess.Width, &sess.Height,
			&paramsStr, &sess.CreatedAtNanos)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if paramsStr.Valid {
			sess.ParamsJSON = json.RawMessage(paramsStr.String)
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}
