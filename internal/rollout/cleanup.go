package rollout

import (
	"context"
	"fmt"
	"strings"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/engine"
)

// Cleaner deletes retired indices.
type Cleaner struct {
	admin engine.IndexAdmin
}

// NewCleaner creates a cleaner.
func NewCleaner(admin engine.IndexAdmin) *Cleaner {
	return &Cleaner{admin: admin}
}

// DeleteIfExists deletes name when it exists. A blank name is a no-op.
func (c *Cleaner) DeleteIfExists(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	exists, err := c.admin.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrIndexCleanup, name, err)
	}
	if !exists {
		return nil
	}
	if err := c.admin.DeleteIndex(ctx, name); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrIndexCleanup, name, err)
	}
	return nil
}
