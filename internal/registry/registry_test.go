package registry_test

import (
	"FundLedger/internal/registry"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.New("hub",
		[]registry.Asset{{ID: "USDC", Decimals: 6}, {ID: "WETH", Decimals: 18}},
		[]registry.ShareClass{{
			ID:           "SC-1",
			PoolDecimals: 18,
			Assets:       []registry.AssetID{"USDC"},
			Managers:     []string{"ops-desk"},
		}},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestAuthorize_Hub(t *testing.T) {
	r := testRegistry(t)
	if err := r.Authorize("SC-1", "hub"); err != nil {
		t.Errorf("hub should be authorized: %v", err)
	}
}

func TestAuthorize_Manager(t *testing.T) {
	r := testRegistry(t)
	if err := r.Authorize("SC-1", "ops-desk"); err != nil {
		t.Errorf("manager should be authorized: %v", err)
	}
}

func TestAuthorize_Stranger(t *testing.T) {
	r := testRegistry(t)
	err := r.Authorize("SC-1", "mallory")
	if !errors.Is(err, registry.ErrNotAuthorized) {
		t.Errorf("got %v, want ErrNotAuthorized", err)
	}
}

func TestHasPair(t *testing.T) {
	r := testRegistry(t)
	if !r.HasPair("SC-1", "USDC") {
		t.Error("SC-1/USDC should be a valid pair")
	}
	if r.HasPair("SC-1", "WETH") {
		t.Error("SC-1/WETH should not be a valid pair")
	}
}

func TestDecimals(t *testing.T) {
	r := testRegistry(t)
	d, ok := r.AssetDecimals("USDC")
	if !ok || d != 6 {
		t.Errorf("USDC decimals: got %d ok=%v, want 6", d, ok)
	}
	p, ok := r.PoolDecimals("SC-1")
	if !ok || p != 18 {
		t.Errorf("SC-1 pool decimals: got %d ok=%v, want 18", p, ok)
	}
}

func TestNew_UnknownAssetReference(t *testing.T) {
	_, err := registry.New("hub", nil, []registry.ShareClass{{
		ID:     "SC-2",
		Assets: []registry.AssetID{"DOGE"},
	}})
	if err == nil {
		t.Error("expected error for unknown asset reference")
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	content := []byte(`
hub: hub
assets:
  - id: USDC
    decimals: 6
share_classes:
  - id: SC-1
    pool_decimals: 18
    assets: [USDC]
    managers: [ops-desk]
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	r, err := registry.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Hub() != "hub" {
		t.Errorf("hub: got %q, want %q", r.Hub(), "hub")
	}
	if !r.HasPair("SC-1", "USDC") {
		t.Error("loaded registry should contain SC-1/USDC")
	}
}
