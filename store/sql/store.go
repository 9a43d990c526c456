package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-webhooks/core"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// Store persists webhook logs in a relational table, interpreting the
// compiled plan's structured predicates instead of its DynamoDB-rendered
// expressions. Useful for local development and deployments without
// DynamoDB; semantics match the primary store, including cursor pagination.
type Store struct {
	db   *bun.DB
	repo repository.Repository[*logRecord]
}

func NewLogStore(db *bun.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*logRecord](db, logHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid log repository wiring: %w", err)
		}
	}
	return &Store{db: db, repo: repo}, nil
}

func (s *Store) Put(ctx context.Context, log core.Log) (core.Log, error) {
	if s == nil || s.db == nil {
		return core.Log{}, fmt.Errorf("sqlstore: log store is not configured")
	}
	// Attempt ids are caller-assigned strings (prefix + UUIDv7), so the
	// insert goes through bun directly; the repository's create path would
	// mint a fresh uuid for anything that does not parse as one.
	record := toRecord(log)
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.Log{}, fmt.Errorf("sqlstore: put log record: %w", err)
	}
	return toDomain(record), nil
}

func (s *Store) Query(ctx context.Context, plan core.QueryPlan) (core.LogPage, error) {
	if s == nil || s.db == nil {
		return core.LogPage{}, fmt.Errorf("sqlstore: log store is not configured")
	}

	var records []*logRecord
	query := s.db.NewSelect().Model(&records)

	for _, predicate := range plan.Predicates {
		var err error
		query, err = s.applyPredicate(query, predicate)
		if err != nil {
			return core.LogPage{}, err
		}
	}

	// Id-lookup plans scan the primary key in id order; range-scan plans
	// follow the createdAt index order with id as tiebreaker.
	idOrder := plan.IndexName == ""
	query, err := s.applyCursor(query, plan, idOrder)
	if err != nil {
		return core.LogPage{}, err
	}

	direction := "ASC"
	if !plan.ScanForward {
		direction = "DESC"
	}
	if idOrder {
		query = query.OrderExpr("id " + direction)
	} else {
		query = query.OrderExpr("created_at "+direction).OrderExpr("id " + direction)
	}
	if plan.Limit > 0 {
		query = query.Limit(plan.Limit)
	}

	if err := query.Scan(ctx); err != nil {
		return core.LogPage{}, fmt.Errorf("sqlstore: query log records: %w", err)
	}

	items := make([]core.Log, 0, len(records))
	for _, record := range records {
		items = append(items, toDomain(record))
	}

	page := core.LogPage{
		Count: len(items),
		Items: items,
	}
	// A full page means more unscanned rows may remain; mirror the indexed
	// store's contract and hand back the last row's key snapshot.
	if plan.Limit > 0 && len(records) == plan.Limit {
		page.LastEvaluatedKey = snapshotCursor(records[len(records)-1], idOrder)
	}
	return page, nil
}

func (s *Store) applyPredicate(query *bun.SelectQuery, predicate core.Predicate) (*bun.SelectQuery, error) {
	path := strings.Join(predicate.Path, ".")
	switch {
	case path == core.AttrNamespace && predicate.Kind == core.PredicateEquals:
		return query.Where("namespace = ?", predicate.Values[0]), nil
	case path == core.AttrID && predicate.Kind == core.PredicateEquals:
		return query.Where("id = ?", predicate.Values[0]), nil
	case path == core.AttrID && predicate.Kind == core.PredicatePrefix:
		prefix, _ := predicate.Values[0].(string)
		return query.Where("id LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%"), nil
	case path == core.AttrCreatedAt && predicate.Kind == core.PredicateBetween:
		from, err := planTime(predicate.Values[0])
		if err != nil {
			return nil, err
		}
		to, err := planTime(predicate.Values[1])
		if err != nil {
			return nil, err
		}
		return query.Where("created_at BETWEEN ? AND ?", from, to), nil
	case path == core.AttrStatus && predicate.Kind == core.PredicateEquals:
		return query.Where("status = ?", predicate.Values[0]), nil
	case len(predicate.Path) == 2 && predicate.Path[0] == core.AttrMetadata && predicate.Kind == core.PredicateEquals:
		return s.applyMetadataPredicate(query, predicate.Path[1], predicate.Values[0]), nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported predicate %s on %s", predicate.Kind, path)
	}
}

func (s *Store) applyMetadataPredicate(query *bun.SelectQuery, key string, value any) *bun.SelectQuery {
	if s.db.Dialect().Name() == dialect.PG {
		return query.Where("metadata->>? = ?", key, scalarText(value))
	}
	return query.Where("json_extract(metadata, ?) = ?", "$.\""+key+"\"", value)
}

func (s *Store) applyCursor(query *bun.SelectQuery, plan core.QueryPlan, idOrder bool) (*bun.SelectQuery, error) {
	if len(plan.StartKey) == 0 {
		return query, nil
	}
	lastID := plan.StartKey[core.AttrID]

	if idOrder {
		if plan.ScanForward {
			return query.Where("id > ?", lastID), nil
		}
		return query.Where("id < ?", lastID), nil
	}

	lastCreated, err := core.ParseLogTime(plan.StartKey[core.AttrCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("sqlstore: malformed pagination cursor: %w", err)
	}
	if plan.ScanForward {
		return query.Where(
			"(created_at > ?) OR (created_at = ? AND id > ?)",
			lastCreated, lastCreated, lastID,
		), nil
	}
	return query.Where(
		"(created_at < ?) OR (created_at = ? AND id < ?)",
		lastCreated, lastCreated, lastID,
	), nil
}

func snapshotCursor(record *logRecord, idOrder bool) core.Cursor {
	cursor := core.Cursor{
		core.AttrNamespace: record.Namespace,
		core.AttrID:        record.ID,
	}
	if !idOrder {
		cursor[core.AttrCreatedAt] = core.FormatLogTime(record.CreatedAt)
	}
	return cursor
}

func (s *Store) Clear(ctx context.Context, namespace string) (core.ClearResult, error) {
	if s == nil || s.db == nil {
		return core.ClearResult{}, fmt.Errorf("sqlstore: log store is not configured")
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return core.ClearResult{}, fmt.Errorf("sqlstore: namespace is required")
	}
	result, err := s.db.NewDelete().
		Model((*logRecord)(nil)).
		Where("namespace = ?", namespace).
		Exec(ctx)
	if err != nil {
		return core.ClearResult{}, fmt.Errorf("sqlstore: clear namespace %q: %w", namespace, err)
	}
	affected, _ := result.RowsAffected()
	return core.ClearResult{Count: int(affected)}, nil
}

// EnsureTable creates the table and the createdAt index when they are
// missing. Production deployments run the shipped migrations instead.
func (s *Store) EnsureTable(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: log store is not configured")
	}
	if _, err := s.db.NewCreateTable().
		Model((*logRecord)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("sqlstore: create webhook_logs table: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*logRecord)(nil)).
		Index("webhook_logs_namespace_created_at_idx").
		IfNotExists().
		Column("namespace", "created_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("sqlstore: create createdAt index: %w", err)
	}
	return nil
}

// planTime accepts the compiler's fixed-width string rendering and raw
// time values alike.
func planTime(value any) (time.Time, error) {
	switch typed := value.(type) {
	case time.Time:
		return typed.UTC(), nil
	case string:
		parsed, err := core.ParseLogTime(typed)
		if err != nil {
			return time.Time{}, fmt.Errorf("sqlstore: malformed plan time %q: %w", typed, err)
		}
		return parsed, nil
	default:
		return time.Time{}, fmt.Errorf("sqlstore: unsupported plan time %T", value)
	}
}

func scalarText(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(encoded)
	}
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

var _ core.LogStore = (*Store)(nil)
