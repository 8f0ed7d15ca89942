package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cinema-core/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresStore struct {
	pgReader
	db  database.PgxIface
	log *zap.Logger
}

// NewPostgres stores each collection as a table of JSONB documents. The
// tables are created by database.Migrate.
func NewPostgres(db database.PgxIface, log *zap.Logger) Gateway {
	log = log.With(zap.String("store", "postgres"))
	return &postgresStore{
		pgReader: pgReader{q: db, log: log},
		db:       db,
		log:      log,
	}
}

func (s *postgresStore) Insert(ctx context.Context, coll Collection, id uuid.UUID, doc []byte) error {
	if err := coll.validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2)`, coll)

	if _, err := s.db.Exec(ctx, query, id, doc); err != nil {
		return s.writeError("insert", coll, id, err)
	}
	return nil
}

func (s *postgresStore) Replace(ctx context.Context, coll Collection, id uuid.UUID, doc []byte) error {
	if err := coll.validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET doc = $2 WHERE id = $1`, coll)

	tag, err := s.db.Exec(ctx, query, id, doc)
	if err != nil {
		return s.writeError("replace", coll, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("replace %s %s: %w", coll, id, ErrNoMatch)
	}
	return nil
}

func (s *postgresStore) ReplaceIf(ctx context.Context, coll Collection, id uuid.UUID, expected, doc []byte) error {
	if err := coll.validate(); err != nil {
		return err
	}
	// jsonb equality ignores key order and whitespace
	query := fmt.Sprintf(`UPDATE %s SET doc = $3 WHERE id = $1 AND doc = $2::jsonb`, coll)

	tag, err := s.db.Exec(ctx, query, id, expected, doc)
	if err != nil {
		return s.writeError("replace_if", coll, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("replace %s %s: %w", coll, id, ErrNoMatch)
	}
	return nil
}

func (s *postgresStore) Delete(ctx context.Context, coll Collection, id uuid.UUID) error {
	if err := coll.validate(); err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, coll)

	tag, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return s.writeError("delete", coll, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete %s %s: %w", coll, id, ErrNoMatch)
	}
	return nil
}

// ReadOnly runs fn inside a repeatable read, read only transaction so every
// query in fn sees the same snapshot.
func (s *postgresStore) ReadOnly(ctx context.Context, fn func(ctx context.Context, r Reader) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		s.log.Error("Failed to open snapshot", zap.Error(err))
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, pgReader{q: tx, log: s.log}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *postgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *postgresStore) Close() {
	s.db.Close()
}

func (s *postgresStore) writeError(op string, coll Collection, id uuid.UUID, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s %s: %w", op, id, &DuplicateKeyError{Collection: coll, Key: constraintKey(pgErr.ConstraintName)})
	}
	s.log.Error("Failed to write document",
		zap.Error(err),
		zap.String("op", op),
		zap.String("collection", string(coll)),
		zap.String("id", id.String()),
	)
	return fmt.Errorf("%s %s %s: %w", op, coll, id, err)
}

// constraintKey names the key behind a unique constraint. Primary keys
// guard the document ID.
func constraintKey(constraint string) string {
	if field, ok := uniqueIndexes[constraint]; ok {
		return field
	}
	if strings.HasSuffix(constraint, "_pkey") {
		return KeyID
	}
	return constraint
}

type pgReader struct {
	q   querier
	log *zap.Logger
}

func (r pgReader) FindByID(ctx context.Context, coll Collection, id uuid.UUID) ([]byte, error) {
	if err := coll.validate(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, coll)

	var doc []byte
	err := r.q.QueryRow(ctx, query, id).Scan(&doc)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find document by ID",
			zap.Error(err),
			zap.String("collection", string(coll)),
			zap.String("id", id.String()),
		)
		return nil, fmt.Errorf("find %s %s: %w", coll, id, err)
	}
	return doc, nil
}

func (r pgReader) Find(ctx context.Context, coll Collection, f Filter) ([][]byte, error) {
	return r.Aggregate(ctx, coll, Pipeline{Match(f)})
}

func (r pgReader) Aggregate(ctx context.Context, coll Collection, p Pipeline) ([][]byte, error) {
	if err := coll.validate(); err != nil {
		return nil, err
	}
	pl, err := p.compile()
	if err != nil {
		return nil, err
	}
	query, args, err := selectQuery(coll, pl)
	if err != nil {
		return nil, err
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to query documents",
			zap.Error(err),
			zap.String("collection", string(coll)),
			zap.Stringer("filter", pl.filter),
		)
		return nil, fmt.Errorf("query %s: %w", coll, err)
	}
	defer rows.Close()

	docs := make([][]byte, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			r.log.Error("Failed to scan document row", zap.Error(err))
			return nil, fmt.Errorf("scan %s: %w", coll, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		r.log.Error("Rows iteration error", zap.Error(err))
		return nil, fmt.Errorf("iterate %s: %w", coll, err)
	}
	return docs, nil
}

func (r pgReader) Count(ctx context.Context, coll Collection, f Filter) (int64, error) {
	if err := coll.validate(); err != nil {
		return 0, err
	}
	b := &sqlBuilder{}
	where, err := b.where(f)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, coll, where)

	var total int64
	if err := r.q.QueryRow(ctx, query, b.args...).Scan(&total); err != nil {
		r.log.Error("Failed to count documents", zap.Error(err), zap.String("collection", string(coll)))
		return 0, fmt.Errorf("count %s: %w", coll, err)
	}
	return total, nil
}

// selectQuery renders a plan as SQL. Field names are always bound as
// parameters; only the validated table name is interpolated.
func selectQuery(coll Collection, pl plan) (string, []any, error) {
	b := &sqlBuilder{}
	where, err := b.where(pl.filter)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT doc FROM %s WHERE %s", coll, where)
	if pl.sort != "" {
		dir := "ASC NULLS FIRST"
		if pl.desc {
			dir = "DESC NULLS LAST"
		}
		fmt.Fprintf(&sb, " ORDER BY doc->(%s::text) %s, seq ASC", b.arg(pl.sort), dir)
	} else {
		sb.WriteString(" ORDER BY seq ASC")
	}
	if pl.skip > 0 {
		fmt.Fprintf(&sb, " OFFSET %s", b.arg(pl.skip))
	}
	if pl.limited {
		fmt.Fprintf(&sb, " LIMIT %s", b.arg(pl.limit))
	}
	return sb.String(), b.args, nil
}

type sqlBuilder struct {
	args []any
}

func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *sqlBuilder) where(f Filter) (string, error) {
	switch f.op {
	case opAll:
		return "TRUE", nil
	case opEq:
		probe, err := json.Marshal(map[string]any{f.field: f.value})
		if err != nil {
			return "", fmt.Errorf("encode filter %s: %w", f.field, err)
		}
		return fmt.Sprintf("doc @> %s::jsonb", b.arg(string(probe))), nil
	case opContains:
		pattern := "%" + escapeLike(fmt.Sprint(f.value)) + "%"
		return fmt.Sprintf(`doc->>(%s::text) ILIKE %s ESCAPE '\'`, b.arg(f.field), b.arg(pattern)), nil
	case opIn:
		if len(f.values) == 0 {
			return "FALSE", nil
		}
		return fmt.Sprintf("doc->>(%s::text) = ANY(%s::text[])", b.arg(f.field), b.arg(f.values)), nil
	case opAnd:
		if len(f.children) == 0 {
			return "TRUE", nil
		}
		parts := make([]string, 0, len(f.children))
		for _, c := range f.children {
			part, err := b.where(c)
			if err != nil {
				return "", err
			}
			parts = append(parts, "("+part+")")
		}
		return strings.Join(parts, " AND "), nil
	default:
		return "", fmt.Errorf("%w: unknown filter op %d", ErrUnsupportedPipeline, f.op)
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
