package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/boostly/backend/internal/models"
	"github.com/boostly/backend/internal/services"
)

type mockStore struct {
	current models.Settings
	puts    []models.Settings
}

func (m *mockStore) Get(context.Context) (models.Settings, error) {
	return m.current, nil
}

func (m *mockStore) Put(_ context.Context, s models.Settings) (models.Settings, error) {
	m.puts = append(m.puts, s)
	s.UpdatedAt = time.Now().UTC()
	m.current = s
	return s, nil
}

type mockValidator struct {
	err error
}

func (m mockValidator) Validate(json.RawMessage) error { return m.err }

func TestGetSettings(t *testing.T) {
	store := &mockStore{current: models.DefaultSettings()}
	h := NewHandler(store, mockValidator{}, nil)

	r := httptest.NewRequest(http.MethodGet, "/admin/settings", nil)
	w := httptest.NewRecorder()
	h.Get(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	var got models.Settings
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if got.PlatformFeePercent != 10 {
		t.Errorf("fee: got %d, want 10", got.PlatformFeePercent)
	}
}

func TestPutSettingsValid(t *testing.T) {
	store := &mockStore{}
	h := NewHandler(store, mockValidator{}, nil)

	body := `{"platform_fee_percent":15,"min_withdrawal_cents":2000,"auto_expire_days":14,"maintenance_mode":true}`
	r := httptest.NewRequest(http.MethodPut, "/admin/settings", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Put(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200; body: %s", w.Code, w.Body)
	}
	if len(store.puts) != 1 {
		t.Fatalf("puts: got %d, want 1", len(store.puts))
	}
	if store.puts[0].PlatformFeePercent != 15 || !store.puts[0].MaintenanceMode {
		t.Errorf("stored settings: %+v", store.puts[0])
	}
}

func TestPutSettingsSchemaViolationIs422(t *testing.T) {
	store := &mockStore{}
	h := NewHandler(store, mockValidator{err: fmt.Errorf("%w: fee out of range", services.ErrValidation)}, nil)

	r := httptest.NewRequest(http.MethodPut, "/admin/settings", strings.NewReader(`{"platform_fee_percent":80}`))
	w := httptest.NewRecorder()
	h.Put(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422", w.Code)
	}
	if len(store.puts) != 0 {
		t.Error("invalid document must not reach the store")
	}
}
