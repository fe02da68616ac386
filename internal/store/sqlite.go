package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"plurald/internal/model"
	"plurald/internal/proxy"
	"plurald/internal/store/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the proxy.Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ proxy.Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite-backed store.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. Exported for tools and tests that need a properly configured
// connection. path can be a file path or ":memory:".
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// CheckMigrations verifies the schema is at the latest version.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// MigrateUp applies pending migrations.
func (s *SQLiteStore) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// System operations

func (s *SQLiteStore) CreateSystem(sys *model.System) error {
	tags, err := json.Marshal(sys.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}
	recent, err := encodeRecent(sys.Proxy.Recent)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO systems (id, owner_user_id, name, tags, proxy_style, proxy_layout, recent_proxies, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sys.ID, sys.OwnerUserID, sys.Name, string(tags), sys.Proxy.Style, sys.Proxy.Layout, recent, sys.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting system: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO layers (id, system_id, name, is_primary) VALUES (?, ?, ?, 1)`,
		uuid.New().String(), sys.ID, model.DefaultLayerName)
	if err != nil {
		return fmt.Errorf("inserting primary layer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing system: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSystem(id string) (*model.System, error) {
	return s.scanSystem(s.db.QueryRow(
		`SELECT id, owner_user_id, name, tags, proxy_style, proxy_layout, recent_proxies, created_at
		 FROM systems WHERE id = ?`, id))
}

func (s *SQLiteStore) FindSystemByOwner(userID string) (*model.System, error) {
	return s.scanSystem(s.db.QueryRow(
		`SELECT id, owner_user_id, name, tags, proxy_style, proxy_layout, recent_proxies, created_at
		 FROM systems WHERE owner_user_id = ?`, userID))
}

func (s *SQLiteStore) scanSystem(row *sql.Row) (*model.System, error) {
	var sys model.System
	var tags, recent string
	err := row.Scan(&sys.ID, &sys.OwnerUserID, &sys.Name, &tags, &sys.Proxy.Style, &sys.Proxy.Layout, &recent, &sys.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("scanning system: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &sys.Tags); err != nil {
		return nil, fmt.Errorf("decoding system tags: %w", err)
	}
	refs, err := decodeRecent(recent)
	if err != nil {
		return nil, err
	}
	sys.Proxy.Recent = refs
	return &sys, nil
}

func (s *SQLiteStore) UpdateProxyConfig(systemID string, cfg model.ProxyConfig) error {
	recent, err := encodeRecent(cfg.Recent)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE systems SET proxy_style = ?, proxy_layout = ?, recent_proxies = ? WHERE id = ?`,
		cfg.Style, cfg.Layout, recent, systemID)
	if err != nil {
		return fmt.Errorf("updating proxy config: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteSystem(id string) error {
	// Personas, layers, and shifts cascade; message records are kept.
	if _, err := s.db.Exec(`DELETE FROM systems WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting system: %w", err)
	}
	return nil
}

// Persona operations

func (s *SQLiteStore) CreatePersona(p *model.Persona) error {
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO personas (id, kind, system_id, name, display_name, pronouns, caution, color, avatar_url, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Kind, p.SystemID, p.Name, p.DisplayName, p.Pronouns, p.Caution, p.Color, p.AvatarURL, tags, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting persona: %w", err)
	}
	return nil
}

const personaColumns = `id, kind, system_id, name, display_name, pronouns, caution, color, avatar_url, tags, created_at`

// personaKindOrder sorts alters before states before groups so match
// priority is stable across backends.
const personaKindOrder = `CASE kind WHEN 'alter' THEN 0 WHEN 'state' THEN 1 ELSE 2 END, rowid`

func (s *SQLiteStore) GetPersona(ref model.PersonaRef) (*model.Persona, error) {
	rows, err := s.db.Query(`SELECT `+personaColumns+` FROM personas WHERE kind = ? AND id = ?`, ref.Kind, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("finding persona: %w", err)
	}
	personas, err := scanPersonas(rows)
	if err != nil {
		return nil, err
	}
	if len(personas) == 0 {
		return nil, nil
	}
	return personas[0], nil
}

func (s *SQLiteStore) FindPersonaByName(systemID, name string) (*model.Persona, error) {
	rows, err := s.db.Query(`SELECT `+personaColumns+` FROM personas
		WHERE system_id = ? AND name = ? COLLATE NOCASE
		ORDER BY `+personaKindOrder+` LIMIT 1`, systemID, name)
	if err != nil {
		return nil, fmt.Errorf("finding persona by name: %w", err)
	}
	personas, err := scanPersonas(rows)
	if err != nil {
		return nil, err
	}
	if len(personas) == 0 {
		return nil, nil
	}
	return personas[0], nil
}

func (s *SQLiteStore) ListPersonas(systemID string) ([]*model.Persona, error) {
	rows, err := s.db.Query(`SELECT `+personaColumns+` FROM personas
		WHERE system_id = ? ORDER BY `+personaKindOrder, systemID)
	if err != nil {
		return nil, fmt.Errorf("listing personas: %w", err)
	}
	return scanPersonas(rows)
}

func scanPersonas(rows *sql.Rows) ([]*model.Persona, error) {
	defer rows.Close()
	var out []*model.Persona
	for rows.Next() {
		var p model.Persona
		var tags string
		if err := rows.Scan(&p.ID, &p.Kind, &p.SystemID, &p.Name, &p.DisplayName, &p.Pronouns,
			&p.Caution, &p.Color, &p.AvatarURL, &tags, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning persona: %w", err)
		}
		decoded, err := decodeTags(tags)
		if err != nil {
			return nil, err
		}
		p.Tags = decoded
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating personas: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) UpdatePersona(p *model.Persona) error {
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE personas SET name = ?, display_name = ?, pronouns = ?, caution = ?, color = ?, avatar_url = ?, tags = ?
		WHERE kind = ? AND id = ?`,
		p.Name, p.DisplayName, p.Pronouns, p.Caution, p.Color, p.AvatarURL, tags, p.Kind, p.ID)
	if err != nil {
		return fmt.Errorf("updating persona: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeletePersona(ref model.PersonaRef) error {
	if _, err := s.db.Exec(`DELETE FROM personas WHERE kind = ? AND id = ?`, ref.Kind, ref.ID); err != nil {
		return fmt.Errorf("deleting persona: %w", err)
	}
	return nil
}

// Front operations

func (s *SQLiteStore) PrimaryLayer(systemID string) (*model.Layer, error) {
	var l model.Layer
	var primary int
	err := s.db.QueryRow(`SELECT id, system_id, name, is_primary FROM layers WHERE system_id = ? AND is_primary = 1`, systemID).
		Scan(&l.ID, &l.SystemID, &l.Name, &primary)
	if err == nil {
		l.Primary = true
		return &l, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("finding primary layer: %w", err)
	}

	l = model.Layer{ID: uuid.New().String(), SystemID: systemID, Name: model.DefaultLayerName, Primary: true}
	if _, err := s.db.Exec(`INSERT INTO layers (id, system_id, name, is_primary) VALUES (?, ?, ?, 1)`,
		l.ID, l.SystemID, l.Name); err != nil {
		return nil, fmt.Errorf("creating primary layer: %w", err)
	}
	return &l, nil
}

func (s *SQLiteStore) CreateLayer(l *model.Layer) error {
	_, err := s.db.Exec(`INSERT INTO layers (id, system_id, name, is_primary) VALUES (?, ?, ?, ?)`,
		l.ID, l.SystemID, l.Name, boolToInt(l.Primary))
	if err != nil {
		return fmt.Errorf("inserting layer: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListLayers(systemID string) ([]*model.Layer, error) {
	rows, err := s.db.Query(`SELECT id, system_id, name, is_primary FROM layers WHERE system_id = ? ORDER BY rowid`, systemID)
	if err != nil {
		return nil, fmt.Errorf("listing layers: %w", err)
	}
	defer rows.Close()

	var out []*model.Layer
	for rows.Next() {
		var l model.Layer
		var primary int
		if err := rows.Scan(&l.ID, &l.SystemID, &l.Name, &primary); err != nil {
			return nil, fmt.Errorf("scanning layer: %w", err)
		}
		l.Primary = primary != 0
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating layers: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) ActiveShifts(layerID string) ([]*model.Shift, error) {
	return s.queryShifts(`SELECT id, layer_id, persona_kind, persona_id, start_time, end_time
		FROM shifts WHERE layer_id = ? AND end_time IS NULL ORDER BY start_time, rowid`, layerID)
}

func (s *SQLiteStore) ListShifts(layerID string) ([]*model.Shift, error) {
	return s.queryShifts(`SELECT id, layer_id, persona_kind, persona_id, start_time, end_time
		FROM shifts WHERE layer_id = ? ORDER BY start_time, rowid`, layerID)
}

func (s *SQLiteStore) queryShifts(query string, args ...any) ([]*model.Shift, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying shifts: %w", err)
	}
	defer rows.Close()

	var out []*model.Shift
	for rows.Next() {
		var sh model.Shift
		var end sql.NullTime
		if err := rows.Scan(&sh.ID, &sh.LayerID, &sh.Persona.Kind, &sh.Persona.ID, &sh.StartTime, &end); err != nil {
			return nil, fmt.Errorf("scanning shift: %w", err)
		}
		if end.Valid {
			t := end.Time
			sh.EndTime = &t
		}
		out = append(out, &sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating shifts: %w", err)
	}

	for _, sh := range out {
		statuses, err := s.shiftStatuses(sh.ID)
		if err != nil {
			return nil, err
		}
		sh.Statuses = statuses
	}
	return out, nil
}

func (s *SQLiteStore) shiftStatuses(shiftID string) ([]model.Status, error) {
	rows, err := s.db.Query(`SELECT id, shift_id, status_text, visible, start_time, end_time
		FROM shift_statuses WHERE shift_id = ? ORDER BY start_time, rowid`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("querying statuses: %w", err)
	}
	defer rows.Close()

	var out []model.Status
	for rows.Next() {
		var st model.Status
		var visible int
		var end sql.NullTime
		if err := rows.Scan(&st.ID, &st.ShiftID, &st.Text, &visible, &st.StartTime, &end); err != nil {
			return nil, fmt.Errorf("scanning status: %w", err)
		}
		st.Visible = visible != 0
		if end.Valid {
			t := end.Time
			st.EndTime = &t
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateShift(sh *model.Shift) error {
	_, err := s.db.Exec(`INSERT INTO shifts (id, layer_id, persona_kind, persona_id, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, NULL)`,
		sh.ID, sh.LayerID, sh.Persona.Kind, sh.Persona.ID, sh.StartTime)
	if err != nil {
		return fmt.Errorf("inserting shift: %w", err)
	}
	return nil
}

func (s *SQLiteStore) EndShift(shiftID string, t time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE shifts SET end_time = ? WHERE id = ? AND end_time IS NULL`, t, shiftID)
	if err != nil {
		return fmt.Errorf("ending shift: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Already closed or unknown; either way a no-op.
		return tx.Commit()
	}

	// Status spans never outlive their parent shift.
	_, err = tx.Exec(`UPDATE shift_statuses SET end_time = ? WHERE shift_id = ? AND end_time IS NULL`, t, shiftID)
	if err != nil {
		return fmt.Errorf("closing shift statuses: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) AddStatus(st *model.Status) error {
	_, err := s.db.Exec(`INSERT INTO shift_statuses (id, shift_id, status_text, visible, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, NULL)`,
		st.ID, st.ShiftID, st.Text, boolToInt(st.Visible), st.StartTime)
	if err != nil {
		return fmt.Errorf("inserting status: %w", err)
	}
	return nil
}

func (s *SQLiteStore) EndStatus(statusID string, t time.Time) error {
	_, err := s.db.Exec(`UPDATE shift_statuses SET end_time = ? WHERE id = ? AND end_time IS NULL`, t, statusID)
	if err != nil {
		return fmt.Errorf("ending status: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ClearLayerShifts(layerID string) error {
	// Statuses cascade with their shifts.
	if _, err := s.db.Exec(`DELETE FROM shifts WHERE layer_id = ?`, layerID); err != nil {
		return fmt.Errorf("clearing layer shifts: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ResetFront(systemID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM layers WHERE system_id = ?`, systemID); err != nil {
		return fmt.Errorf("deleting layers: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO layers (id, system_id, name, is_primary) VALUES (?, ?, ?, 1)`,
		uuid.New().String(), systemID, model.DefaultLayerName); err != nil {
		return fmt.Errorf("recreating primary layer: %w", err)
	}
	return tx.Commit()
}

// Message operations

func (s *SQLiteStore) CreateMessage(m *model.MessageRecord) error {
	_, err := s.db.Exec(`INSERT INTO messages (external_id, channel_id, author_user_id, system_id, persona_kind, persona_id, matched_tag, content, created_at, edited_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		m.ExternalID, m.ChannelID, m.AuthorUserID, m.SystemID, m.Persona.Kind, m.Persona.ID, m.MatchedTag, m.Content, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

const messageColumns = `external_id, channel_id, author_user_id, system_id, persona_kind, persona_id, matched_tag, content, created_at, edited_at`

func (s *SQLiteStore) GetMessage(externalID string) (*model.MessageRecord, error) {
	return scanMessage(s.db.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE external_id = ?`, externalID))
}

func (s *SQLiteStore) LatestMessageByAuthor(channelID, authorUserID string) (*model.MessageRecord, error) {
	return scanMessage(s.db.QueryRow(`SELECT `+messageColumns+` FROM messages
		WHERE channel_id = ? AND author_user_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`, channelID, authorUserID))
}

func scanMessage(row *sql.Row) (*model.MessageRecord, error) {
	var m model.MessageRecord
	var edited sql.NullTime
	err := row.Scan(&m.ExternalID, &m.ChannelID, &m.AuthorUserID, &m.SystemID,
		&m.Persona.Kind, &m.Persona.ID, &m.MatchedTag, &m.Content, &m.CreatedAt, &edited)
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("scanning message: %w", err)
	}
	if edited.Valid {
		t := edited.Time
		m.EditedAt = &t
	}
	return &m, nil
}

func (s *SQLiteStore) UpdateMessage(previousExternalID string, m *model.MessageRecord) error {
	var edited any
	if m.EditedAt != nil {
		edited = *m.EditedAt
	}
	_, err := s.db.Exec(`UPDATE messages SET external_id = ?, persona_kind = ?, persona_id = ?, matched_tag = ?, content = ?, edited_at = ?
		WHERE external_id = ?`,
		m.ExternalID, m.Persona.Kind, m.Persona.ID, m.MatchedTag, m.Content, edited, previousExternalID)
	if err != nil {
		return fmt.Errorf("updating message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteMessage(externalID string) error {
	if _, err := s.db.Exec(`DELETE FROM messages WHERE external_id = ?`, externalID); err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	return nil
}

// Guild operations

func (s *SQLiteStore) GetGuild(id string) (*model.Guild, error) {
	var g model.Guild
	var enabled int
	err := s.db.QueryRow(`SELECT id, proxy_enabled, log_channel_id FROM guilds WHERE id = ?`, id).
		Scan(&g.ID, &enabled, &g.LogChannelID)
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("finding guild: %w", err)
	}
	g.ProxyEnabled = enabled != 0
	return &g, nil
}

func (s *SQLiteStore) UpsertGuild(g *model.Guild) error {
	_, err := s.db.Exec(`INSERT INTO guilds (id, proxy_enabled, log_channel_id) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET proxy_enabled = excluded.proxy_enabled, log_channel_id = excluded.log_channel_id`,
		g.ID, boolToInt(g.ProxyEnabled), g.LogChannelID)
	if err != nil {
		return fmt.Errorf("upserting guild: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Encoding helpers. Tag lists and the recent-proxy list are stored as JSON
// text: they are small, always read and written whole, and never queried by
// element.

func encodeTags(tags []model.ProxyTag) (string, error) {
	patterns := make([]string, len(tags))
	for i, t := range tags {
		patterns[i] = t.String()
	}
	b, err := json.Marshal(patterns)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(b), nil
}

func decodeTags(encoded string) ([]model.ProxyTag, error) {
	var patterns []string
	if err := json.Unmarshal([]byte(encoded), &patterns); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	tags, err := model.ParseProxyTags(patterns)
	if err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	return tags, nil
}

func encodeRecent(recent []model.PersonaRef) (string, error) {
	keys := make([]string, len(recent))
	for i, r := range recent {
		keys[i] = r.Key()
	}
	b, err := json.Marshal(keys)
	if err != nil {
		return "", fmt.Errorf("encoding recent proxies: %w", err)
	}
	return string(b), nil
}

func decodeRecent(encoded string) ([]model.PersonaRef, error) {
	var keys []string
	if err := json.Unmarshal([]byte(encoded), &keys); err != nil {
		return nil, fmt.Errorf("decoding recent proxies: %w", err)
	}
	var out []model.PersonaRef
	for _, k := range keys {
		for i := 0; i < len(k); i++ {
			if k[i] == ':' {
				out = append(out, model.PersonaRef{Kind: model.PersonaKind(k[:i]), ID: k[i+1:]})
				break
			}
		}
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
