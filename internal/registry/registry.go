package registry

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ShareClassID identifies a share class of a pool.
type ShareClassID string

// AssetID identifies a deposit/payout asset by symbol.
type AssetID string

// ErrNotAuthorized is returned uniformly for callers that are neither the hub
// controller nor a registered manager of the share class.
var ErrNotAuthorized = errors.New("caller is not authorized")

// Asset describes a settlement asset and its atom precision.
type Asset struct {
	ID       AssetID `yaml:"id"`
	Decimals uint8   `yaml:"decimals"`
}

// ShareClass describes one share class: its unit-of-account precision, the
// assets it settles against, and the principals allowed to operate it.
type ShareClass struct {
	ID           ShareClassID `yaml:"id"`
	PoolDecimals uint8        `yaml:"pool_decimals"`
	Assets       []AssetID    `yaml:"assets"`
	Managers     []string     `yaml:"managers"`
}

// Registry supplies decimal precision for the pool's unit of account and for
// each asset, and answers authorization questions for mutating entry points.
type Registry struct {
	hub          string
	assets       map[AssetID]Asset
	shareClasses map[ShareClassID]ShareClass
}

type registryFile struct {
	Hub          string       `yaml:"hub"`
	Assets       []Asset      `yaml:"assets"`
	ShareClasses []ShareClass `yaml:"share_classes"`
}

// Load reads a YAML registry file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	return New(f.Hub, f.Assets, f.ShareClasses)
}

// New builds a registry from already-parsed entries.
func New(hub string, assets []Asset, shareClasses []ShareClass) (*Registry, error) {
	if hub == "" {
		return nil, fmt.Errorf("registry: hub controller is required")
	}

	r := &Registry{
		hub:          hub,
		assets:       make(map[AssetID]Asset, len(assets)),
		shareClasses: make(map[ShareClassID]ShareClass, len(shareClasses)),
	}

	for _, a := range assets {
		if a.Decimals > 18 {
			return nil, fmt.Errorf("registry: asset %s has %d decimals, max 18", a.ID, a.Decimals)
		}
		r.assets[a.ID] = a
	}

	for _, sc := range shareClasses {
		if sc.PoolDecimals > 18 {
			return nil, fmt.Errorf("registry: share class %s has %d pool decimals, max 18", sc.ID, sc.PoolDecimals)
		}
		for _, aid := range sc.Assets {
			if _, ok := r.assets[aid]; !ok {
				return nil, fmt.Errorf("registry: share class %s references unknown asset %s", sc.ID, aid)
			}
		}
		r.shareClasses[sc.ID] = sc
	}

	return r, nil
}

// Hub returns the hub controller principal.
func (r *Registry) Hub() string {
	return r.hub
}

// AssetDecimals returns atom precision for an asset.
func (r *Registry) AssetDecimals(id AssetID) (uint8, bool) {
	a, ok := r.assets[id]
	return a.Decimals, ok
}

// PoolDecimals returns the unit-of-account precision for a share class.
func (r *Registry) PoolDecimals(id ShareClassID) (uint8, bool) {
	sc, ok := r.shareClasses[id]
	return sc.PoolDecimals, ok
}

// HasPair reports whether the share class settles against the asset.
func (r *Registry) HasPair(scID ShareClassID, assetID AssetID) bool {
	sc, ok := r.shareClasses[scID]
	if !ok {
		return false
	}
	for _, a := range sc.Assets {
		if a == assetID {
			return true
		}
	}
	return false
}

// IsManager reports whether caller manages the share class.
func (r *Registry) IsManager(scID ShareClassID, caller string) bool {
	sc, ok := r.shareClasses[scID]
	if !ok {
		return false
	}
	for _, m := range sc.Managers {
		if m == caller {
			return true
		}
	}
	return false
}

// Authorize validates a mutating caller: the hub controller or a manager of
// the share class. Unauthorized callers fail uniformly.
func (r *Registry) Authorize(scID ShareClassID, caller string) error {
	if caller == r.hub || r.IsManager(scID, caller) {
		return nil
	}
	return fmt.Errorf("%w: caller=%s share_class=%s", ErrNotAuthorized, caller, scID)
}
