// Package persistence provides SQLite-based storage for simulation runs.
// A run is saved as a full snapshot: people, parent-child edges, the event
// history and a small key-value table holding the cursor.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/lineage/internal/agents"
	"github.com/talgya/lineage/internal/config"
	"github.com/talgya/lineage/internal/engine"
	"github.com/talgya/lineage/internal/registry"
)

// ErrNoRun is returned when the database holds no saved run.
var ErrNoRun = errors.New("no saved run")

// Metadata keys in world_meta.
const (
	MetaRunID     = "run_id"
	MetaYear      = "year"
	MetaPlayerID  = "player_id"
	MetaState     = "state"
	MetaEndReason = "end_reason"
	MetaSeed      = "seed"
	MetaFounders  = "founders"
	MetaConfig    = "config"
)

// DB wraps a SQLite connection for run persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// NewRunID returns a fresh time-ordered run identifier.
func NewRunID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("run id: %w", err)
	}
	return id.String(), nil
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS people (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		age INTEGER NOT NULL,
		sex INTEGER NOT NULL,
		alive INTEGER NOT NULL,
		outsider INTEGER NOT NULL,
		occupation TEXT NOT NULL,
		mother_id INTEGER NOT NULL DEFAULT 0,
		father_id INTEGER NOT NULL DEFAULT 0,
		spouse_id INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS children (
		parent_id INTEGER NOT NULL,
		child_id INTEGER NOT NULL,
		ord INTEGER NOT NULL,
		PRIMARY KEY (parent_id, ord)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		year INTEGER NOT NULL,
		type TEXT NOT NULL,
		description TEXT NOT NULL,
		persons_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_year ON events(year);
	CREATE INDEX IF NOT EXISTS idx_people_alive ON people(alive);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type personRow struct {
	ID         int64  `db:"id"`
	Name       string `db:"name"`
	Age        int    `db:"age"`
	Sex        int    `db:"sex"`
	Alive      int    `db:"alive"`
	Outsider   int    `db:"outsider"`
	Occupation string `db:"occupation"`
	MotherID   int64  `db:"mother_id"`
	FatherID   int64  `db:"father_id"`
	SpouseID   int64  `db:"spouse_id"`
}

type childRow struct {
	ParentID int64 `db:"parent_id"`
	ChildID  int64 `db:"child_id"`
}

type eventRow struct {
	Year        int    `db:"year"`
	Type        string `db:"type"`
	Description string `db:"description"`
	Persons     string `db:"persons_json"`
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SaveSnapshot writes the whole run under runID, replacing whatever was
// stored before. Everything happens in one transaction.
func (db *DB) SaveSnapshot(runID string, snap engine.Snapshot) error {
	cfgJSON, err := json.Marshal(snap.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"people", "children", "events"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := savePeople(tx, snap.People); err != nil {
		return err
	}
	if err := saveEvents(tx, snap.Events); err != nil {
		return err
	}

	meta := map[string]string{
		MetaRunID:     runID,
		MetaYear:      strconv.Itoa(snap.Year),
		MetaPlayerID:  strconv.FormatUint(uint64(snap.PlayerID), 10),
		MetaState:     string(snap.State),
		MetaEndReason: snap.EndReason,
		MetaSeed:      strconv.FormatInt(snap.Seed, 10),
		MetaFounders:  strconv.Itoa(snap.Founders),
		MetaConfig:    string(cfgJSON),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Debug("run saved", "run", runID, "year", snap.Year, "people", len(snap.People), "events", len(snap.Events))
	return nil
}

func savePeople(tx *sqlx.Tx, records []registry.Record) error {
	people, err := tx.Preparex(`INSERT INTO people
		(id, name, age, sex, alive, outsider, occupation, mother_id, father_id, spouse_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer people.Close()

	children, err := tx.Preparex("INSERT INTO children (parent_id, child_id, ord) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer children.Close()

	for _, r := range records {
		_, err := people.Exec(
			int64(r.ID), r.Name, r.Age, int(r.Sex),
			boolInt(r.Alive), boolInt(r.Outsider), r.Occupation,
			int64(r.MotherID), int64(r.FatherID), int64(r.SpouseID),
		)
		if err != nil {
			return fmt.Errorf("insert person %d: %w", r.ID, err)
		}
		for i, c := range r.Children {
			if _, err := children.Exec(int64(r.ID), int64(c), i); err != nil {
				return fmt.Errorf("insert child %d of %d: %w", c, r.ID, err)
			}
		}
	}
	return nil
}

func saveEvents(tx *sqlx.Tx, events []engine.Event) error {
	stmt, err := tx.Preparex("INSERT INTO events (year, type, description, persons_json) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		persons, err := json.Marshal(e.Persons)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(e.Year, string(e.Type), e.Description, string(persons)); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return nil
}

// SaveMeta stores a key-value pair in run metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value. A missing key yields ErrNoRun.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: missing %s", ErrNoRun, key)
	}
	return value, err
}

// RunID returns the identifier of the saved run.
func (db *DB) RunID() (string, error) {
	return db.GetMeta(MetaRunID)
}

// LoadSnapshot reads the saved run back into a snapshot that
// engine.Restore accepts.
func (db *DB) LoadSnapshot() (engine.Snapshot, error) {
	var snap engine.Snapshot

	meta, err := db.loadMeta()
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal([]byte(meta[MetaConfig]), &snap.Config); err != nil {
		return snap, fmt.Errorf("decode config: %w", err)
	}
	if snap.Year, err = strconv.Atoi(meta[MetaYear]); err != nil {
		return snap, fmt.Errorf("decode year: %w", err)
	}
	player, err := strconv.ParseUint(meta[MetaPlayerID], 10, 64)
	if err != nil {
		return snap, fmt.Errorf("decode player: %w", err)
	}
	snap.PlayerID = agents.PersonID(player)
	if snap.Seed, err = strconv.ParseInt(meta[MetaSeed], 10, 64); err != nil {
		return snap, fmt.Errorf("decode seed: %w", err)
	}
	if snap.Founders, err = strconv.Atoi(meta[MetaFounders]); err != nil {
		return snap, fmt.Errorf("decode founders: %w", err)
	}
	snap.State = engine.State(meta[MetaState])
	snap.EndReason = meta[MetaEndReason]

	if snap.People, err = db.loadPeople(); err != nil {
		return snap, fmt.Errorf("load people: %w", err)
	}
	if snap.Events, err = db.AllEvents(); err != nil {
		return snap, fmt.Errorf("load events: %w", err)
	}

	slog.Info("run loaded", "run", meta[MetaRunID], "year", snap.Year, "people", len(snap.People))
	return snap, nil
}

func (db *DB) loadMeta() (map[string]string, error) {
	meta := make(map[string]string)
	for _, key := range []string{MetaRunID, MetaYear, MetaPlayerID, MetaState, MetaEndReason, MetaSeed, MetaFounders, MetaConfig} {
		v, err := db.GetMeta(key)
		if err != nil {
			return nil, err
		}
		meta[key] = v
	}
	return meta, nil
}

func (db *DB) loadPeople() ([]registry.Record, error) {
	var rows []personRow
	if err := db.conn.Select(&rows, "SELECT * FROM people ORDER BY id"); err != nil {
		return nil, err
	}
	var edges []childRow
	if err := db.conn.Select(&edges, "SELECT parent_id, child_id FROM children ORDER BY parent_id, ord"); err != nil {
		return nil, err
	}

	children := make(map[agents.PersonID][]agents.PersonID)
	for _, e := range edges {
		parent := agents.PersonID(e.ParentID)
		children[parent] = append(children[parent], agents.PersonID(e.ChildID))
	}

	records := make([]registry.Record, 0, len(rows))
	for _, r := range rows {
		id := agents.PersonID(r.ID)
		records = append(records, registry.Record{
			Person: agents.Person{
				ID:         id,
				Name:       r.Name,
				Age:        r.Age,
				Sex:        agents.Sex(r.Sex),
				Alive:      r.Alive != 0,
				Outsider:   r.Outsider != 0,
				Occupation: r.Occupation,
				MotherID:   agents.PersonID(r.MotherID),
				FatherID:   agents.PersonID(r.FatherID),
			},
			SpouseID: agents.PersonID(r.SpouseID),
			Children: children[id],
		})
	}
	return records, nil
}

// Events returns the events recorded for one year, in emission order.
func (db *DB) Events(year int) ([]engine.Event, error) {
	var rows []eventRow
	err := db.conn.Select(&rows,
		"SELECT year, type, description, persons_json FROM events WHERE year = ? ORDER BY id",
		year,
	)
	if err != nil {
		return nil, err
	}
	return decodeEvents(rows)
}

// AllEvents returns the whole stored history, in emission order.
func (db *DB) AllEvents() ([]engine.Event, error) {
	var rows []eventRow
	if err := db.conn.Select(&rows, "SELECT year, type, description, persons_json FROM events ORDER BY id"); err != nil {
		return nil, err
	}
	return decodeEvents(rows)
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var rows []eventRow
	err := db.conn.Select(&rows,
		"SELECT year, type, description, persons_json FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	return decodeEvents(rows)
}

func decodeEvents(rows []eventRow) ([]engine.Event, error) {
	var events []engine.Event
	for _, r := range rows {
		e := engine.Event{Year: r.Year, Type: engine.EventType(r.Type), Description: r.Description}
		if err := json.Unmarshal([]byte(r.Persons), &e.Persons); err != nil {
			return nil, fmt.Errorf("decode event persons: %w", err)
		}
		events = append(events, e)
	}
	return events, nil
}

// SaveRun saves sim under runID.
func (db *DB) SaveRun(runID string, sim *engine.Simulation) error {
	if err := db.SaveSnapshot(runID, sim.Snapshot()); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// LoadRun restores the saved run, returning it with its run id.
func (db *DB) LoadRun(opts engine.Options) (*engine.Simulation, string, error) {
	runID, err := db.RunID()
	if err != nil {
		return nil, "", err
	}
	snap, err := db.LoadSnapshot()
	if err != nil {
		return nil, "", err
	}
	sim, err := engine.Restore(snap, opts)
	if err != nil {
		return nil, "", fmt.Errorf("restore run %s: %w", runID, err)
	}
	return sim, runID, nil
}

// ConfigOf returns the simulation parameters of the saved run.
func (db *DB) ConfigOf() (config.Simulation, error) {
	var cfg config.Simulation
	raw, err := db.GetMeta(MetaConfig)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
