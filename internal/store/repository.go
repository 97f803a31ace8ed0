package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aziz13-coder/newcodexhorary/internal/domain"
)

// ErrNotFound is returned when a judgment id has no row, fresh or expired.
var ErrNotFound = errors.New("judgment not found")

// Record is one persisted judgment with its chart snapshot.
type Record struct {
	ID         string                `json:"id"`
	AskedAt    time.Time             `json:"asked_at"`
	Question   string                `json:"question"`
	Querent    domain.Planet         `json:"querent"`
	Quesited   domain.Planet         `json:"quesited"`
	Verdict    domain.Verdict        `json:"verdict"`
	Confidence int                   `json:"confidence"`
	Chart      *domain.Chart         `json:"chart,omitempty"`
	Result     domain.JudgmentResult `json:"result"`
	CreatedAt  time.Time             `json:"created_at"`
	ExpiresAt  time.Time             `json:"expires_at"`
}

// Summary is the listing view of a record, without the heavy blobs.
type Summary struct {
	ID         string         `json:"id"`
	AskedAt    time.Time      `json:"asked_at"`
	Question   string         `json:"question"`
	Verdict    domain.Verdict `json:"verdict"`
	Confidence int            `json:"confidence"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Repository stores judgment history rows with a retention TTL.
type Repository struct {
	db  *sql.DB
	ttl time.Duration
	log zerolog.Logger
}

// NewRepository creates a repository over db. Rows expire ttl after save;
// a non-positive ttl defaults to thirty days.
func NewRepository(db *DB, ttl time.Duration, log zerolog.Logger) *Repository {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Repository{
		db:  db.Conn(),
		ttl: ttl,
		log: log.With().Str("component", "store").Logger(),
	}
}

// Save persists a judged chart and returns the new record id.
func (r *Repository) Save(chart *domain.Chart, contract domain.Contract, result domain.JudgmentResult) (string, error) {
	id := uuid.New().String()

	chartBlob, err := msgpack.Marshal(chart)
	if err != nil {
		return "", fmt.Errorf("encode chart: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.Exec(`
		INSERT INTO judgments
			(id, asked_at, question, querent, quesited, verdict, confidence, chart, result, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		chart.AskedAt.UTC().Unix(),
		contract.Description,
		string(contract.Querent),
		string(contract.Quesited),
		string(result.Verdict),
		result.Confidence,
		chartBlob,
		string(resultJSON),
		now.Unix(),
		now.Add(r.ttl).Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("insert judgment: %w", err)
	}

	r.log.Debug().
		Str("id", id).
		Str("verdict", string(result.Verdict)).
		Int("confidence", result.Confidence).
		Msg("Judgment saved")
	return id, nil
}

// Get loads a record by id, including the decoded chart snapshot. Expired
// rows are treated as absent even before the cleanup job removes them.
func (r *Repository) Get(id string) (*Record, error) {
	row := r.db.QueryRow(`
		SELECT id, asked_at, question, querent, quesited, verdict, confidence, chart, result, created_at, expires_at
		FROM judgments
		WHERE id = ? AND expires_at > ?`,
		id, time.Now().UTC().Unix(),
	)

	var (
		rec        Record
		askedAt    int64
		createdAt  int64
		expiresAt  int64
		querent    string
		quesited   string
		verdict    string
		chartBlob  []byte
		resultJSON string
	)
	err := row.Scan(&rec.ID, &askedAt, &rec.Question, &querent, &quesited,
		&verdict, &rec.Confidence, &chartBlob, &resultJSON, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load judgment %s: %w", id, err)
	}

	rec.Querent = domain.Planet(querent)
	rec.Quesited = domain.Planet(quesited)
	rec.Verdict = domain.Verdict(verdict)
	rec.AskedAt = time.Unix(askedAt, 0).UTC()
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.ExpiresAt = time.Unix(expiresAt, 0).UTC()

	var chart domain.Chart
	if err := msgpack.Unmarshal(chartBlob, &chart); err != nil {
		return nil, fmt.Errorf("decode chart for %s: %w", id, err)
	}
	rec.Chart = &chart

	if err := json.Unmarshal([]byte(resultJSON), &rec.Result); err != nil {
		return nil, fmt.Errorf("decode result for %s: %w", id, err)
	}
	return &rec, nil
}

// List returns the most recent unexpired judgments, newest first.
func (r *Repository) List(limit int) ([]Summary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(`
		SELECT id, asked_at, question, verdict, confidence, created_at
		FROM judgments
		WHERE expires_at > ?
		ORDER BY created_at DESC, id
		LIMIT ?`,
		time.Now().UTC().Unix(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list judgments: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			s         Summary
			askedAt   int64
			createdAt int64
			verdict   string
		)
		if err := rows.Scan(&s.ID, &askedAt, &s.Question, &verdict, &s.Confidence, &createdAt); err != nil {
			return nil, fmt.Errorf("scan judgment row: %w", err)
		}
		s.Verdict = domain.Verdict(verdict)
		s.AskedAt = time.Unix(askedAt, 0).UTC()
		s.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteExpired removes rows past their retention window and returns how
// many were deleted.
func (r *Repository) DeleteExpired() (int64, error) {
	res, err := r.db.Exec(`DELETE FROM judgments WHERE expires_at <= ?`, time.Now().UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired judgments: %w", err)
	}
	return res.RowsAffected()
}
