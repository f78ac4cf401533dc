// Package sqlite provides a SQLite implementation of the GraphStore interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlitedriver "modernc.org/sqlite" // Pure Go SQLite driver
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ersonp/lineage-core/internal/domain/entities"
	"github.com/ersonp/lineage-core/internal/domain/ports"
	"github.com/ersonp/lineage-core/internal/infrastructure/config"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// Repository implements ports.GraphStore using SQLite.
type Repository struct {
	db   *sql.DB
	path string
}

var _ ports.GraphStore = (*Repository)(nil)

// NewRepository creates a new SQLite repository.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// One connection: writes are serialized and :memory: databases stay shared.
	db.SetMaxOpenConns(1)

	// Enable foreign keys for referential integrity
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &Repository{
		db:   db,
		path: cfg.Path,
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS persons (
		id TEXT PRIMARY KEY,
		tree_id TEXT NOT NULL,
		sex TEXT NOT NULL DEFAULT 'unknown' CHECK (sex IN ('male', 'female', 'unknown')),
		given_name TEXT NOT NULL DEFAULT '',
		surname TEXT NOT NULL DEFAULT '',
		normalized_name TEXT NOT NULL,
		birth_date TEXT,
		birth_precision TEXT,
		death_date TEXT,
		death_precision TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_persons_tree ON persons(tree_id);
	CREATE INDEX IF NOT EXISTS idx_persons_name ON persons(tree_id, normalized_name);

	-- Localized renderings of a person's name
	CREATE TABLE IF NOT EXISTS person_names (
		person_id TEXT NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
		locale TEXT NOT NULL,
		given_name TEXT NOT NULL DEFAULT '',
		surname TEXT NOT NULL DEFAULT '',
		normalized_name TEXT NOT NULL,
		PRIMARY KEY (person_id, locale)
	);

	-- Directed parent -> child edges, soft-deleted via deleted_at
	CREATE TABLE IF NOT EXISTS parent_child (
		id TEXT PRIMARY KEY,
		parent_id TEXT NOT NULL REFERENCES persons(id),
		child_id TEXT NOT NULL REFERENCES persons(id),
		kind TEXT NOT NULL CHECK (kind IN ('biological', 'adoptive', 'step', 'foster')),
		created_at TIMESTAMP NOT NULL,
		deleted_at TIMESTAMP,
		CHECK (parent_id <> child_id)
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_parent_child_active
		ON parent_child(parent_id, child_id) WHERE deleted_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_parent_child_child ON parent_child(child_id) WHERE deleted_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_parent_child_parent ON parent_child(parent_id) WHERE deleted_at IS NULL;

	CREATE TRIGGER IF NOT EXISTS trg_parent_child_biological
	BEFORE INSERT ON parent_child
	WHEN NEW.kind = 'biological' AND NEW.deleted_at IS NULL
	BEGIN
		SELECT RAISE(ABORT, 'max 2 biological parents')
		WHERE (SELECT COUNT(*) FROM parent_child
			WHERE child_id = NEW.child_id AND kind = 'biological' AND deleted_at IS NULL) >= 2;
		SELECT RAISE(ABORT, 'same-sex biological parent')
		WHERE EXISTS (
			SELECT 1 FROM parent_child pc
			JOIN persons existing ON existing.id = pc.parent_id
			JOIN persons candidate ON candidate.id = NEW.parent_id
			WHERE pc.child_id = NEW.child_id
				AND pc.kind = 'biological'
				AND pc.deleted_at IS NULL
				AND candidate.sex <> 'unknown'
				AND existing.sex = candidate.sex
		);
	END;

	CREATE TABLE IF NOT EXISTS unions (
		id TEXT PRIMARY KEY,
		tree_id TEXT NOT NULL,
		type TEXT NOT NULL,
		start_date TEXT,
		start_precision TEXT,
		end_date TEXT,
		end_precision TEXT,
		created_at TIMESTAMP NOT NULL,
		deleted_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_unions_tree ON unions(tree_id);

	CREATE TABLE IF NOT EXISTS union_members (
		id TEXT PRIMARY KEY,
		union_id TEXT NOT NULL REFERENCES unions(id),
		person_id TEXT NOT NULL REFERENCES persons(id),
		created_at TIMESTAMP NOT NULL,
		deleted_at TIMESTAMP
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_union_members_active
		ON union_members(union_id, person_id) WHERE deleted_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_union_members_person ON union_members(person_id) WHERE deleted_at IS NULL;

	-- Audit log (tracks all mutations)
	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		subject_id TEXT,
		details TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_log_subject ON audit_log(subject_id);
	CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
	`

	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// isConstraint reports whether err is a SQLite constraint failure
// (CHECK, UNIQUE, FOREIGN KEY or a trigger RAISE).
func isConstraint(err error) bool {
	var e *sqlitedriver.Error
	if errors.As(err, &e) {
		return e.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

// constraintError wraps a constraint failure in entities.ErrConstraintViolation.
func constraintError(op string, err error) error {
	if isConstraint(err) {
		return fmt.Errorf("%s: %w: %v", op, entities.ErrConstraintViolation, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// personColumns lists person columns in scanPerson order, qualified by alias p.
const personColumns = `p.id, p.tree_id, p.sex, p.given_name, p.surname,
	p.birth_date, p.birth_precision, p.death_date, p.death_precision,
	p.created_at, p.updated_at`

func nullDate(d *entities.FuzzyDate) (sql.NullString, sql.NullString) {
	if d == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: entities.FormatDate(d.Date), Valid: true},
		sql.NullString{String: string(d.Precision), Valid: true}
}

func parseDate(date, precision sql.NullString) (*entities.FuzzyDate, error) {
	if !date.Valid || date.String == "" {
		return nil, nil
	}
	t, err := entities.ParseStoredDate(date.String)
	if err != nil {
		return nil, fmt.Errorf("parsing stored date %q: %w", date.String, err)
	}
	p := entities.DatePrecision(precision.String)
	if p == "" {
		p = entities.PrecisionExact
	}
	return &entities.FuzzyDate{Date: t, Precision: p}, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// scanPerson scans personColumns followed by any extra destinations.
func scanPerson(s rowScanner, extra ...any) (*entities.Person, error) {
	var p entities.Person
	var sex string
	var birth, birthPrecision, death, deathPrecision sql.NullString

	dest := append([]any{
		&p.ID, &p.TreeID, &sex, &p.GivenName, &p.Surname,
		&birth, &birthPrecision, &death, &deathPrecision,
		&p.CreatedAt, &p.UpdatedAt,
	}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	p.Sex = entities.Sex(sex)
	var err error
	if p.Birth, err = parseDate(birth, birthPrecision); err != nil {
		return nil, err
	}
	if p.Death, err = parseDate(death, deathPrecision); err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePerson saves or updates a person and replaces their localized names.
func (r *Repository) SavePerson(ctx context.Context, person *entities.Person) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	birth, birthPrecision := nullDate(person.Birth)
	death, deathPrecision := nullDate(person.Death)
	createdAt, updatedAt := person.CreatedAt, person.UpdatedAt
	if createdAt.IsZero() {
		createdAt = timeNow()
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	query := `
		INSERT INTO persons (id, tree_id, sex, given_name, surname, normalized_name,
			birth_date, birth_precision, death_date, death_precision, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sex = excluded.sex,
			given_name = excluded.given_name,
			surname = excluded.surname,
			normalized_name = excluded.normalized_name,
			birth_date = excluded.birth_date,
			birth_precision = excluded.birth_precision,
			death_date = excluded.death_date,
			death_precision = excluded.death_precision,
			updated_at = excluded.updated_at
	`
	_, err = tx.ExecContext(ctx, query,
		person.ID,
		person.TreeID,
		string(person.Sex),
		person.GivenName,
		person.Surname,
		entities.NormalizeName(person.DisplayName()),
		birth, birthPrecision,
		death, deathPrecision,
		createdAt,
		updatedAt,
	)
	if err != nil {
		return constraintError("saving person", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM person_names WHERE person_id = ?`, person.ID); err != nil {
		return fmt.Errorf("clearing person names: %w", err)
	}
	for _, n := range person.Names {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO person_names (person_id, locale, given_name, surname, normalized_name)
			VALUES (?, ?, ?, ?, ?)`,
			person.ID, n.Locale, n.GivenName, n.Surname, entities.NormalizeName(n.GivenName+" "+n.Surname),
		)
		if err != nil {
			return constraintError("saving person name", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing person: %w", err)
	}
	return nil
}

// FindPersonByID finds a person by ID.
func (r *Repository) FindPersonByID(ctx context.Context, personID string) (*entities.Person, error) {
	query := `SELECT ` + personColumns + ` FROM persons p WHERE p.id = ?`
	person, err := scanPerson(r.db.QueryRowContext(ctx, query, personID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning person: %w", err)
	}

	persons := []entities.Person{*person}
	if err := r.attachNames(ctx, persons); err != nil {
		return nil, err
	}
	return &persons[0], nil
}

// FindPersonsByName finds persons whose normalized display name equals name.
func (r *Repository) FindPersonsByName(ctx context.Context, treeID, name string) ([]entities.Person, error) {
	query := `
		SELECT ` + personColumns + `
		FROM persons p
		WHERE p.tree_id = ? AND p.normalized_name = ?
		ORDER BY p.rowid
	`
	return r.queryPersons(ctx, query, treeID, entities.NormalizeName(name))
}

// ListPersons lists persons of a tree sorted by surname then given name.
func (r *Repository) ListPersons(ctx context.Context, treeID string, limit, offset int) ([]entities.Person, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT ` + personColumns + `
		FROM persons p
		WHERE p.tree_id = ?
		ORDER BY p.surname ASC, p.given_name ASC, p.rowid ASC
		LIMIT ? OFFSET ?
	`
	return r.queryPersons(ctx, query, treeID, limit, offset)
}

// SearchPersons matches query against primary and localized names.
func (r *Repository) SearchPersons(ctx context.Context, treeID, query string, limit int) ([]entities.Person, error) {
	if limit <= 0 {
		limit = -1
	}
	pattern := "%" + entities.NormalizeName(query) + "%"
	sqlQuery := `
		SELECT ` + personColumns + `
		FROM persons p
		WHERE p.tree_id = ? AND (
			p.normalized_name LIKE ?
			OR EXISTS (SELECT 1 FROM person_names n WHERE n.person_id = p.id AND n.normalized_name LIKE ?)
		)
		ORDER BY p.surname ASC, p.given_name ASC, p.rowid ASC
		LIMIT ?
	`
	return r.queryPersons(ctx, sqlQuery, treeID, pattern, pattern, limit)
}

// CountPersons returns the number of persons in a tree.
func (r *Repository) CountPersons(ctx context.Context, treeID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM persons WHERE tree_id = ?`, treeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting persons: %w", err)
	}
	return count, nil
}

func (r *Repository) queryPersons(ctx context.Context, query string, args ...any) ([]entities.Person, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying persons: %w", err)
	}
	defer rows.Close()

	var persons []entities.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning person: %w", err)
		}
		persons = append(persons, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating persons: %w", err)
	}
	rows.Close()

	if err := r.attachNames(ctx, persons); err != nil {
		return nil, err
	}
	return persons, nil
}

// attachNames loads localized names for persons in one query.
func (r *Repository) attachNames(ctx context.Context, persons []entities.Person) error {
	if len(persons) == 0 {
		return nil
	}

	index := make(map[string][]int, len(persons))
	placeholders := make([]string, 0, len(persons))
	args := make([]any, 0, len(persons))
	for i := range persons {
		id := persons[i].ID
		if _, ok := index[id]; !ok {
			placeholders = append(placeholders, "?")
			args = append(args, id)
		}
		index[id] = append(index[id], i)
	}

	query := fmt.Sprintf(`
		SELECT person_id, locale, given_name, surname
		FROM person_names
		WHERE person_id IN (%s)
		ORDER BY person_id, locale
	`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying person names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var personID string
		var n entities.PersonName
		if err := rows.Scan(&personID, &n.Locale, &n.GivenName, &n.Surname); err != nil {
			return fmt.Errorf("scanning person name: %w", err)
		}
		for _, i := range index[personID] {
			persons[i].Names = append(persons[i].Names, n)
		}
	}
	return rows.Err()
}

// edgeColumns lists edge columns in scanEdge order, qualified by alias pc.
const edgeColumns = `pc.id, pc.parent_id, pc.child_id, pc.kind, pc.created_at, pc.deleted_at`

func edgeDest(e *entities.ParentChild, kind *string, deletedAt *sql.NullTime) []any {
	return []any{&e.ID, &e.ParentID, &e.ChildID, kind, &e.CreatedAt, deletedAt}
}

func scanEdge(s rowScanner) (*entities.ParentChild, error) {
	var e entities.ParentChild
	var kind string
	var deletedAt sql.NullTime
	if err := s.Scan(edgeDest(&e, &kind, &deletedAt)...); err != nil {
		return nil, err
	}
	e.Kind = entities.ParentKind(kind)
	e.DeletedAt = timePtr(deletedAt)
	return &e, nil
}

// FindParents returns the active parent edges of a person in insertion order.
func (r *Repository) FindParents(ctx context.Context, personID string) ([]entities.Relative, error) {
	query := `
		SELECT ` + personColumns + `, ` + edgeColumns + `
		FROM parent_child pc
		JOIN persons p ON p.id = pc.parent_id
		WHERE pc.child_id = ? AND pc.deleted_at IS NULL
		ORDER BY pc.rowid
	`
	return r.queryRelatives(ctx, query, personID)
}

// FindChildren returns the active child edges of a person in insertion order.
func (r *Repository) FindChildren(ctx context.Context, personID string) ([]entities.Relative, error) {
	query := `
		SELECT ` + personColumns + `, ` + edgeColumns + `
		FROM parent_child pc
		JOIN persons p ON p.id = pc.child_id
		WHERE pc.parent_id = ? AND pc.deleted_at IS NULL
		ORDER BY pc.rowid
	`
	return r.queryRelatives(ctx, query, personID)
}

func (r *Repository) queryRelatives(ctx context.Context, query string, args ...any) ([]entities.Relative, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying relatives: %w", err)
	}
	defer rows.Close()

	var relatives []entities.Relative
	for rows.Next() {
		var edge entities.ParentChild
		var kind string
		var deletedAt sql.NullTime
		person, err := scanPerson(rows, edgeDest(&edge, &kind, &deletedAt)...)
		if err != nil {
			return nil, fmt.Errorf("scanning relative: %w", err)
		}
		edge.Kind = entities.ParentKind(kind)
		edge.DeletedAt = timePtr(deletedAt)
		relatives = append(relatives, entities.Relative{Person: *person, Edge: edge})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating relatives: %w", err)
	}
	return relatives, nil
}

// FindActiveEdge finds the active edge parent→child.
func (r *Repository) FindActiveEdge(ctx context.Context, parentID, childID string) (*entities.ParentChild, error) {
	query := `
		SELECT ` + edgeColumns + `
		FROM parent_child pc
		WHERE pc.parent_id = ? AND pc.child_id = ? AND pc.deleted_at IS NULL
	`
	edge, err := scanEdge(r.db.QueryRowContext(ctx, query, parentID, childID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning edge: %w", err)
	}
	return edge, nil
}

// FindEdgeByID finds an edge, active or not.
func (r *Repository) FindEdgeByID(ctx context.Context, edgeID string) (*entities.ParentChild, error) {
	query := `SELECT ` + edgeColumns + ` FROM parent_child pc WHERE pc.id = ?`
	edge, err := scanEdge(r.db.QueryRowContext(ctx, query, edgeID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning edge: %w", err)
	}
	return edge, nil
}

// InsertEdge inserts an active edge. The cycle check and the insert run in one
// transaction; the schema rejects self edges, duplicates, a third biological
// parent and a second biological parent of the same sex.
func (r *Repository) InsertEdge(ctx context.Context, edge *entities.ParentChild) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Does the child already reach the parent through active edges?
	cycleQuery := `
		WITH RECURSIVE descendants(id) AS (
			SELECT ?
			UNION
			SELECT pc.child_id
			FROM parent_child pc
			JOIN descendants d ON pc.parent_id = d.id
			WHERE pc.deleted_at IS NULL
		)
		SELECT EXISTS (SELECT 1 FROM descendants WHERE id = ?)
	`
	var cycle bool
	if edge.ParentID != edge.ChildID {
		if err := tx.QueryRowContext(ctx, cycleQuery, edge.ChildID, edge.ParentID).Scan(&cycle); err != nil {
			return fmt.Errorf("checking for cycle: %w", err)
		}
	}
	if cycle {
		return fmt.Errorf("inserting edge %s -> %s: %w: edge would create a cycle",
			edge.ParentID, edge.ChildID, entities.ErrConstraintViolation)
	}

	query := `
		INSERT INTO parent_child (id, parent_id, child_id, kind, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		edge.ID,
		edge.ParentID,
		edge.ChildID,
		string(edge.Kind),
		edge.CreatedAt,
		nullTime(edge.DeletedAt),
	)
	if err != nil {
		return constraintError("inserting edge", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing edge: %w", err)
	}
	return nil
}

// SoftDeleteEdge marks an active edge deleted.
func (r *Repository) SoftDeleteEdge(ctx context.Context, edgeID string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE parent_child SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, at, edgeID)
	if err != nil {
		return fmt.Errorf("deleting edge: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("active edge not found: %s", edgeID)
	}
	return nil
}

// unionColumns lists union columns in scanUnion order, qualified by alias u.
const unionColumns = `u.id, u.tree_id, u.type, u.start_date, u.start_precision,
	u.end_date, u.end_precision, u.created_at, u.deleted_at`

func scanUnion(s rowScanner) (*entities.Union, error) {
	var u entities.Union
	var unionType string
	var start, startPrecision, end, endPrecision sql.NullString
	var deletedAt sql.NullTime

	if err := s.Scan(&u.ID, &u.TreeID, &unionType, &start, &startPrecision,
		&end, &endPrecision, &u.CreatedAt, &deletedAt); err != nil {
		return nil, err
	}

	u.Type = entities.UnionType(unionType)
	u.DeletedAt = timePtr(deletedAt)
	var err error
	if u.Start, err = parseDate(start, startPrecision); err != nil {
		return nil, err
	}
	if u.End, err = parseDate(end, endPrecision); err != nil {
		return nil, err
	}
	return &u, nil
}

// SaveUnion saves or updates a union.
func (r *Repository) SaveUnion(ctx context.Context, union *entities.Union) error {
	return saveUnion(ctx, r.db, union)
}

// CreateUnion saves a new union and its memberships in one transaction.
func (r *Repository) CreateUnion(ctx context.Context, union *entities.Union, members []entities.UnionMember) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := saveUnion(ctx, tx, union); err != nil {
		return err
	}
	for i := range members {
		if err := addUnionMember(ctx, tx, &members[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing union: %w", err)
	}
	return nil
}

func saveUnion(ctx context.Context, ex execer, union *entities.Union) error {
	start, startPrecision := nullDate(union.Start)
	end, endPrecision := nullDate(union.End)
	createdAt := union.CreatedAt
	if createdAt.IsZero() {
		createdAt = timeNow()
	}

	query := `
		INSERT INTO unions (id, tree_id, type, start_date, start_precision, end_date, end_precision, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			start_date = excluded.start_date,
			start_precision = excluded.start_precision,
			end_date = excluded.end_date,
			end_precision = excluded.end_precision,
			deleted_at = excluded.deleted_at
	`
	_, err := ex.ExecContext(ctx, query,
		union.ID,
		union.TreeID,
		string(union.Type),
		start, startPrecision,
		end, endPrecision,
		createdAt,
		nullTime(union.DeletedAt),
	)
	if err != nil {
		return constraintError("saving union", err)
	}
	return nil
}

// FindUnionByID finds a union, active or not.
func (r *Repository) FindUnionByID(ctx context.Context, unionID string) (*entities.Union, error) {
	query := `SELECT ` + unionColumns + ` FROM unions u WHERE u.id = ?`
	union, err := scanUnion(r.db.QueryRowContext(ctx, query, unionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning union: %w", err)
	}
	return union, nil
}

// FindUnionsByPerson returns active unions the person is an active member of.
func (r *Repository) FindUnionsByPerson(ctx context.Context, personID string) ([]entities.Union, error) {
	query := `
		SELECT ` + unionColumns + `
		FROM unions u
		JOIN union_members m ON m.union_id = u.id
		WHERE m.person_id = ? AND m.deleted_at IS NULL AND u.deleted_at IS NULL
		ORDER BY u.rowid
	`
	rows, err := r.db.QueryContext(ctx, query, personID)
	if err != nil {
		return nil, fmt.Errorf("querying unions: %w", err)
	}
	defer rows.Close()

	var unions []entities.Union
	for rows.Next() {
		u, err := scanUnion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning union: %w", err)
		}
		unions = append(unions, *u)
	}
	return unions, rows.Err()
}

// FindUnionMembers returns the active members of a union in joining order.
func (r *Repository) FindUnionMembers(ctx context.Context, unionID string) ([]entities.Person, error) {
	query := `
		SELECT ` + personColumns + `
		FROM union_members m
		JOIN persons p ON p.id = m.person_id
		WHERE m.union_id = ? AND m.deleted_at IS NULL
		ORDER BY m.rowid
	`
	return r.queryPersons(ctx, query, unionID)
}

// AddUnionMember adds an active membership.
func (r *Repository) AddUnionMember(ctx context.Context, member *entities.UnionMember) error {
	return addUnionMember(ctx, r.db, member)
}

func addUnionMember(ctx context.Context, ex execer, member *entities.UnionMember) error {
	createdAt := member.CreatedAt
	if createdAt.IsZero() {
		createdAt = timeNow()
	}
	query := `
		INSERT INTO union_members (id, union_id, person_id, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := ex.ExecContext(ctx, query,
		member.ID,
		member.UnionID,
		member.PersonID,
		createdAt,
		nullTime(member.DeletedAt),
	)
	if err != nil {
		return constraintError("adding union member", err)
	}
	return nil
}

// RemoveUnionMember soft-deletes an active membership.
func (r *Repository) RemoveUnionMember(ctx context.Context, unionID, personID string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE union_members SET deleted_at = ?
		WHERE union_id = ? AND person_id = ? AND deleted_at IS NULL`,
		at, unionID, personID)
	if err != nil {
		return fmt.Errorf("removing union member: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("active membership not found: %s in %s", personID, unionID)
	}
	return nil
}

// LogAction logs an action to the audit log.
func (r *Repository) LogAction(ctx context.Context, action string, subjectID string, details map[string]any) error {
	var detailsJSON sql.NullString
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshaling details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(data), Valid: true}
	}

	var subject sql.NullString
	if subjectID != "" {
		subject = sql.NullString{String: subjectID, Valid: true}
	}

	query := `INSERT INTO audit_log (action, subject_id, details, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, action, subject, detailsJSON, timeNow())
	if err != nil {
		return fmt.Errorf("logging action: %w", err)
	}
	return nil
}

// FindAuditLog finds audit log entries for a subject, newest first.
func (r *Repository) FindAuditLog(ctx context.Context, subjectID string) ([]entities.AuditEntry, error) {
	query := `
		SELECT id, action, subject_id, details, created_at
		FROM audit_log
		WHERE subject_id = ?
		ORDER BY id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var entries []entities.AuditEntry
	for rows.Next() {
		var entry entities.AuditEntry
		var subject, details sql.NullString

		if err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&subject,
			&details,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		entry.SubjectID = subject.String

		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &entry.Details); err != nil {
				return nil, fmt.Errorf("unmarshaling details: %w", err)
			}
		}

		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
