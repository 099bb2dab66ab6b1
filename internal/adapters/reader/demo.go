package reader

import (
	"context"
	"time"

	"github.com/feltworks/deckhand/internal/domain"
)

// DemoTarget is a driver that never senses a tag. It keeps the agent
// fully runnable on machines without reader hardware: positions simply
// stay empty.
type DemoTarget struct{}

// NewDemoTarget returns a no-hardware driver.
func NewDemoTarget() *DemoTarget { return &DemoTarget{} }

func (DemoTarget) Probe(ctx context.Context, timeout time.Duration) ([]byte, error) {
	// Honor the probe pacing so demo mode polls at realistic rates.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, nil
	}
}

func (DemoTarget) ReadPage(ctx context.Context, page int) ([]byte, error) {
	return nil, domain.ErrNoReader
}

func (DemoTarget) WritePage(ctx context.Context, page int, data []byte) error {
	return domain.ErrNoReader
}
