package memory

import (
	"context"
	"sync"

	"github.com/kerya-reservation-engine/internal/domain/property"
)

// PropertyCatalog is an in-memory property.Catalog
type PropertyCatalog struct {
	mu         sync.RWMutex
	properties map[int64]property.Property
}

var _ property.Catalog = (*PropertyCatalog)(nil)

func NewPropertyCatalog(seed ...property.Property) *PropertyCatalog {
	c := &PropertyCatalog{properties: make(map[int64]property.Property, len(seed))}
	for _, p := range seed {
		c.properties[p.ID] = p
	}
	return c
}

func (c *PropertyCatalog) GetByID(ctx context.Context, id int64) (*property.Property, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.properties[id]
	if !ok {
		return nil, property.ErrPropertyNotFound{ID: id}
	}
	return &p, nil
}

func (c *PropertyCatalog) Upsert(ctx context.Context, p *property.Property) error {
	if err := p.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.properties[p.ID] = *p
	return nil
}
