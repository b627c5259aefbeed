package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prudhvinik1/possync/internal/models"
)

// MemoryKeyValueStore is a process-local KeyValueStore for tests and demos.
type MemoryKeyValueStore struct {
	mu   sync.Mutex
	data map[string][]byte

	// SetErr, when non-nil, is returned by every Set.
	SetErr error
}

func NewMemoryKeyValueStore() *MemoryKeyValueStore {
	return &MemoryKeyValueStore{data: make(map[string][]byte)}
}

func (m *MemoryKeyValueStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKeyValueStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SetErr != nil {
		return m.SetErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKeyValueStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// MemoryRemoteStore mimics PostgresRemoteRepository in memory. Hooks let
// tests inject failures per call.
type MemoryRemoteStore struct {
	mu     sync.Mutex
	tables map[string]map[string]models.RemoteRow
	calls  []string

	PingErr   error
	UpsertErr func(table string, row models.RemoteRow) error
	DeleteErr func(table, id string) error
	ListErr   map[string]error
}

func NewMemoryRemoteStore() *MemoryRemoteStore {
	return &MemoryRemoteStore{
		tables:  make(map[string]map[string]models.RemoteRow),
		ListErr: make(map[string]error),
	}
}

func (m *MemoryRemoteStore) record(call string) {
	m.calls = append(m.calls, call)
}

// Calls returns the operations seen so far as "op:table" strings.
func (m *MemoryRemoteStore) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MemoryRemoteStore) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PingErr
}

// SetPingErr flips reachability for tests that drive a connectivity monitor.
func (m *MemoryRemoteStore) SetPingErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PingErr = err
}

func (m *MemoryRemoteStore) Upsert(_ context.Context, table string, row models.RemoteRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("upsert:" + table)
	if m.UpsertErr != nil {
		if err := m.UpsertErr(table, row); err != nil {
			return err
		}
	}
	id := row.ID()
	if id == "" {
		return models.ErrMissingRecordID
	}

	t, ok := m.tables[table]
	if !ok {
		t = make(map[string]models.RemoteRow)
		m.tables[table] = t
	}
	existing, ok := t[id]
	if !ok {
		t[id] = copyRow(row)
		return nil
	}
	if shopID, scoped := row["shop_id"]; scoped && existing["shop_id"] != shopID {
		return ErrForeignRecord
	}
	for col, v := range row {
		existing[col] = v
	}
	return nil
}

func (m *MemoryRemoteStore) Delete(_ context.Context, table, id, shopID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("delete:" + table)
	if m.DeleteErr != nil {
		if err := m.DeleteErr(table, id); err != nil {
			return err
		}
	}
	if row, ok := m.tables[table][id]; ok && row.String("shop_id") == shopID {
		delete(m.tables[table], id)
	}
	return nil
}

func (m *MemoryRemoteStore) List(_ context.Context, table, shopID string, order OrderBy) ([]models.RemoteRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("list:" + table)
	if err := m.ListErr[table]; err != nil {
		return nil, err
	}

	var rows []models.RemoteRow
	for _, row := range m.tables[table] {
		if row.String("shop_id") == shopID {
			rows = append(rows, copyRow(row))
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if order.Column == "" {
			return rows[i].ID() < rows[j].ID()
		}
		c := compareValues(rows[i][order.Column], rows[j][order.Column])
		if c == 0 {
			return rows[i].ID() < rows[j].ID()
		}
		if order.Descending {
			return c > 0
		}
		return c < 0
	})
	return rows, nil
}

func (m *MemoryRemoteStore) GetShop(_ context.Context, shopID string) (models.RemoteRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("get:" + models.ShopsTable)
	if err := m.ListErr[models.ShopsTable]; err != nil {
		return nil, err
	}
	row, ok := m.tables[models.ShopsTable][shopID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRow(row), nil
}

// Rows returns every stored row of table regardless of owner.
func (m *MemoryRemoteStore) Rows(table string) []models.RemoteRow {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]models.RemoteRow, 0, len(m.tables[table]))
	for _, row := range m.tables[table] {
		rows = append(rows, copyRow(row))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID() < rows[j].ID() })
	return rows
}

func copyRow(row models.RemoteRow) models.RemoteRow {
	out := make(models.RemoteRow, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func compareValues(a, b any) int {
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case int64:
		if y, ok := b.(int64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

// MemoryPresenceRepository keeps presence without expiry.
type MemoryPresenceRepository struct {
	mu       sync.Mutex
	presence map[string]models.Presence
}

func NewMemoryPresenceRepository() *MemoryPresenceRepository {
	return &MemoryPresenceRepository{presence: make(map[string]models.Presence)}
}

func (m *MemoryPresenceRepository) SetPresence(_ context.Context, presence *models.Presence) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	presence.LastSeen = time.Now()
	m.presence[presenceKey(presence.ShopID, presence.DeviceID)] = *presence
	return nil
}

func (m *MemoryPresenceRepository) GetPresence(_ context.Context, shopID, deviceID string) (*models.Presence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.presence[presenceKey(shopID, deviceID)]
	if !ok {
		return offlinePresence(shopID, deviceID), nil
	}
	return &p, nil
}

func (m *MemoryPresenceRepository) DeletePresence(_ context.Context, shopID, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.presence, presenceKey(shopID, deviceID))
	return nil
}

func (m *MemoryPresenceRepository) GetBulkPresence(ctx context.Context, shopID string, deviceIDs []string) (map[string]models.Presence, error) {
	out := make(map[string]models.Presence, len(deviceIDs))
	for _, id := range deviceIDs {
		p, _ := m.GetPresence(ctx, shopID, id)
		out[id] = *p
	}
	return out, nil
}
