package ecommerce

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/shiphub/backend/internal/domain/integration"
)

// Registry maps marketplace codes to their adapters
type Registry struct {
	mu           sync.RWMutex
	marketplaces map[integration.MarketplaceCode]integration.Marketplace
}

// NewRegistry creates a registry holding the given adapters
func NewRegistry(marketplaces ...integration.Marketplace) *Registry {
	r := &Registry{marketplaces: make(map[integration.MarketplaceCode]integration.Marketplace)}
	for _, m := range marketplaces {
		r.Register(m)
	}
	return r
}

// RegistryConfig carries the per-marketplace adapter configuration
type RegistryConfig struct {
	Veeqo    *VeeqoConfig
	Trendyol *TrendyolConfig
	Shippo   *ShippoConfig
}

// NewDefaultRegistry builds the Veeqo, Trendyol and Shippo adapters.
// Nil configs fall back to production defaults.
func NewDefaultRegistry(cfg RegistryConfig, logger *zap.Logger) (*Registry, error) {
	if cfg.Veeqo == nil {
		cfg.Veeqo = NewVeeqoConfig()
	}
	if cfg.Trendyol == nil {
		cfg.Trendyol = NewTrendyolConfig()
	}
	if cfg.Shippo == nil {
		cfg.Shippo = NewShippoConfig()
	}

	veeqo, err := NewVeeqoAdapter(cfg.Veeqo, logger)
	if err != nil {
		return nil, err
	}
	trendyol, err := NewTrendyolAdapter(cfg.Trendyol, logger)
	if err != nil {
		return nil, err
	}
	shippo, err := NewShippoAdapter(cfg.Shippo, logger)
	if err != nil {
		return nil, err
	}
	return NewRegistry(veeqo, trendyol, shippo), nil
}

// Register adds or replaces the adapter for its code
func (r *Registry) Register(m integration.Marketplace) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marketplaces[m.Code()] = m
}

// Resolve returns the adapter for code
func (r *Registry) Resolve(code integration.MarketplaceCode) (integration.Marketplace, error) {
	r.mu.RLock()
	m, ok := r.marketplaces[code]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", integration.ErrUnsupportedMarketplace, code)
	}
	return m, nil
}

// Codes returns the registered marketplace codes in sync order
func (r *Registry) Codes() []integration.MarketplaceCode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]integration.MarketplaceCode, 0, len(r.marketplaces))
	for _, code := range integration.AllMarketplaces() {
		if _, ok := r.marketplaces[code]; ok {
			codes = append(codes, code)
		}
	}
	return codes
}

var _ integration.MarketplaceResolver = (*Registry)(nil)
