package auth

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/charlesng35/authcore/pkg/logger"
)

// Coordinator dispatches authentication requests to the strategy registered
// for their declared type. It is the single entry point for credential-based
// login and holds no state beyond the registry itself.
type Coordinator struct {
	mu         sync.RWMutex
	strategies map[Type]Strategy
	log        *zap.Logger
}

// NewCoordinator builds a coordinator with the given strategies registered.
func NewCoordinator(strategies ...Strategy) *Coordinator {
	c := &Coordinator{
		strategies: make(map[Type]Strategy),
		log:        logger.WithComponent("auth.coordinator"),
	}
	for _, s := range strategies {
		c.RegisterStrategy(s)
	}
	return c
}

// RegisterStrategy associates a strategy with its declared type. The last
// registration for a type wins, which is how extension methods replace
// defaults without touching the coordinator.
func (c *Coordinator) RegisterStrategy(s Strategy) {
	if s == nil {
		return
	}

	c.mu.Lock()
	c.strategies[s.Type()] = s
	c.mu.Unlock()

	c.log.Info("registered authentication strategy", zap.String("type", string(s.Type())))
}

// Authenticate delegates to the strategy matching the request's type,
// propagating the strategy's result or failure unchanged.
func (c *Coordinator) Authenticate(ctx context.Context, req Request) (*Result, error) {
	if req == nil {
		return nil, ErrInvalidRequestType
	}

	c.mu.RLock()
	strategy, ok := c.strategies[req.Type()]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrUnsupportedAuthType.WithMessage(
			"Authentication type not supported: " + string(req.Type()))
	}

	return strategy.Authenticate(ctx, req)
}

// SupportedTypes returns the currently registered type set in stable order.
func (c *Coordinator) SupportedTypes() []Type {
	c.mu.RLock()
	defer c.mu.RUnlock()

	types := make([]Type, 0, len(c.strategies))
	for t := range c.strategies {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
