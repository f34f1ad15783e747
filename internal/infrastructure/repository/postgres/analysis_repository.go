package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
)

const schemaLockID = int64(2026021001)

// AnalysisRepository stores analyses as a JSONB document plus the
// columns the read side filters and aggregates on.
type AnalysisRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db, now: time.Now}
}

func (r *AnalysisRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS analyses (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	raw_input TEXT NOT NULL,
	label TEXT NOT NULL,
	category TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	intensity INTEGER NOT NULL,
	risk_level TEXT NOT NULL,
	time_of_day TEXT NOT NULL,
	context_tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	document JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_owner_kind_created ON analyses(owner_id, kind, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_analyses_owner_label ON analyses(owner_id, kind, label);
CREATE INDEX IF NOT EXISTS idx_analyses_context_tags ON analyses USING GIN (context_tags);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Create assigns the id and timestamps and inserts the analysis.
func (r *AnalysisRepository) Create(ctx context.Context, result *domain.AnalysisResult) (string, error) {
	if result == nil || strings.TrimSpace(result.OwnerID) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "insert analysis", errors.New("owner is required"))
	}
	stored := *result
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := r.now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	doc, tags, err := encodeAnalysis(&stored)
	if err != nil {
		return "", err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO analyses (
	id, owner_id, kind, raw_input, label, category, confidence, intensity, risk_level, time_of_day, context_tags, document, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`,
		stored.ID, stored.OwnerID, string(stored.Kind), stored.RawInput,
		stored.Assessment.Label, string(stored.Assessment.Category), stored.Assessment.Confidence, stored.Assessment.Intensity,
		string(severityOf(&stored)), string(stored.Metadata.TimeOfDay), tags, doc, stored.CreatedAt, stored.UpdatedAt,
	)
	if err != nil {
		return "", domain.WrapError(domain.ErrPersistence, "insert analysis", err)
	}
	result.CreatedAt = stored.CreatedAt
	result.UpdatedAt = stored.UpdatedAt
	return stored.ID, nil
}

const selectAnalysis = `SELECT id, owner_id, document, created_at, updated_at FROM analyses`

// GetByID never reveals another owner's analysis; a foreign id reads as not found.
func (r *AnalysisRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.AnalysisResult, error) {
	row := r.db.QueryRowContext(ctx, selectAnalysis+`
WHERE id = $1 AND owner_id = $2
`, id, ownerID)

	result, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAnalysisNotFound, "get analysis", fmt.Errorf("id=%s", id))
		}
		return nil, domain.WrapError(domain.ErrPersistence, "get analysis", err)
	}
	return result, nil
}

func (r *AnalysisRepository) ListByOwner(ctx context.Context, ownerID string, kind domain.AnalysisKind, limit int) ([]domain.AnalysisResult, error) {
	return r.Query(ctx, domain.AnalysisFilter{OwnerID: ownerID, Kind: kind, Limit: limit})
}

func (r *AnalysisRepository) Query(ctx context.Context, filter domain.AnalysisFilter) ([]domain.AnalysisResult, error) {
	if strings.TrimSpace(filter.OwnerID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "query analyses", errors.New("owner is required"))
	}
	where, args := buildWhere(filter)
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)
	query := fmt.Sprintf("%s\nWHERE %s\nORDER BY created_at DESC\nLIMIT $%d\n", selectAnalysis, where, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "query analyses", err)
	}
	defer rows.Close()

	out := make([]domain.AnalysisResult, 0)
	for rows.Next() {
		result, err := scanAnalysis(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrPersistence, "scan analysis", err)
		}
		out = append(out, *result)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "iterate analyses", err)
	}
	return out, nil
}

// AggregateTrends groups the owner's analyses in the window by primary label.
func (r *AnalysisRepository) AggregateTrends(ctx context.Context, ownerID string, kind domain.AnalysisKind, windowDays int) ([]domain.TrendPoint, error) {
	since := r.now().UTC().AddDate(0, 0, -windowDays)
	rows, err := r.db.QueryContext(ctx, `
SELECT label, COUNT(*), AVG(confidence), AVG(intensity)
FROM analyses
WHERE owner_id = $1 AND kind = $2 AND created_at >= $3
GROUP BY label
ORDER BY COUNT(*) DESC, label ASC
`, ownerID, string(kind), since)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "aggregate trends", err)
	}
	defer rows.Close()

	out := make([]domain.TrendPoint, 0)
	for rows.Next() {
		var p domain.TrendPoint
		if err := rows.Scan(&p.Label, &p.Count, &p.AvgConfidence, &p.AvgIntensity); err != nil {
			return nil, domain.WrapError(domain.ErrPersistence, "scan trend", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "iterate trends", err)
	}
	return out, nil
}

func (r *AnalysisRepository) Update(ctx context.Context, result *domain.AnalysisResult) error {
	if result.UpdatedAt.IsZero() {
		result.UpdatedAt = r.now().UTC()
	}
	doc, tags, err := encodeAnalysis(result)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE analyses
SET label = $3, category = $4, confidence = $5, intensity = $6, risk_level = $7, time_of_day = $8, context_tags = $9, document = $10, updated_at = $11
WHERE id = $1 AND owner_id = $2
`,
		result.ID, result.OwnerID,
		result.Assessment.Label, string(result.Assessment.Category), result.Assessment.Confidence, result.Assessment.Intensity,
		string(severityOf(result)), string(result.Metadata.TimeOfDay), tags, doc, result.UpdatedAt,
	)
	if err != nil {
		return domain.WrapError(domain.ErrPersistence, "update analysis", err)
	}
	return requireAffected(res, "update analysis", result.ID)
}

func (r *AnalysisRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return domain.WrapError(domain.ErrPersistence, "delete analysis", err)
	}
	return requireAffected(res, "delete analysis", id)
}

func buildWhere(f domain.AnalysisFilter) (string, []any) {
	clauses := []string{"owner_id = $1"}
	args := []any{f.OwnerID}
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.Kind != "" {
		add("kind = $%d", string(f.Kind))
	}
	if f.Label != "" {
		add("lower(label) = lower($%d)", f.Label)
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From.UTC())
	}
	if !f.To.IsZero() {
		add("created_at < $%d", f.To.UTC())
	}
	if len(f.RiskLevels) > 0 {
		placeholders := make([]string, 0, len(f.RiskLevels))
		for _, level := range f.RiskLevels {
			args = append(args, string(level))
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		clauses = append(clauses, "risk_level IN ("+strings.Join(placeholders, ", ")+")")
	}
	if f.TimeOfDay != "" {
		add("time_of_day = $%d", string(f.TimeOfDay))
	}
	if f.ContextTag != "" {
		tag, _ := json.Marshal([]string{f.ContextTag})
		add("context_tags @> $%d::jsonb", tag)
	}
	return strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*domain.AnalysisResult, error) {
	var (
		result  domain.AnalysisResult
		docRaw  []byte
		id      string
		ownerID string
		created time.Time
		updated time.Time
	)
	if err := row.Scan(&id, &ownerID, &docRaw, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(docRaw, &result); err != nil {
		return nil, fmt.Errorf("unmarshal analysis document: %w", err)
	}
	result.ID = id
	result.OwnerID = ownerID
	result.CreatedAt = created
	result.UpdatedAt = updated
	return &result, nil
}

func encodeAnalysis(result *domain.AnalysisResult) (doc []byte, tags []byte, err error) {
	doc, err = json.Marshal(result)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal analysis document: %w", err)
	}
	contextTags := result.Metadata.ContextTags
	if contextTags == nil {
		contextTags = []string{}
	}
	tags, err = json.Marshal(contextTags)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal context tags: %w", err)
	}
	return doc, tags, nil
}

// severityOf is the level indexed for risk filters: sleep severity for
// sleep analyses, the risk assessment otherwise.
func severityOf(result *domain.AnalysisResult) domain.Level {
	if result.Risk.Level == domain.LevelHigh {
		return domain.LevelHigh
	}
	if result.Sleep != nil && result.Sleep.Severity != "" {
		return result.Sleep.Severity
	}
	return result.Risk.Level
}

func requireAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.WrapError(domain.ErrPersistence, operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrAnalysisNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
