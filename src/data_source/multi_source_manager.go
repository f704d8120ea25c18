package datasource

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"stock-forecast/src/helpers"
	"stock-forecast/src/interfaces"
	"stock-forecast/src/logger"
	"stock-forecast/src/models"
)

// MultiSourceManager is an IHistoricalSource that tries its sources in
// registration order and returns the first successful answer.
type MultiSourceManager struct {
	Logger  *logger.Logger
	mu      sync.RWMutex
	order   []string
	sources map[string]interfaces.IHistoricalSource
}

// -----------------------------------------------------------------------------

func NewMultiSourceManager(sources []interfaces.IHistoricalSource, log *logger.Logger) *MultiSourceManager {
	m := &MultiSourceManager{
		Logger:  log,
		sources: make(map[string]interfaces.IHistoricalSource),
	}

	for _, s := range sources {
		if err := m.AddSource(s); err != nil {
			log.Warning("MultiSourceManager: %v", err)
		}
	}

	return m
}

// -----------------------------------------------------------------------------

// AddSource appends a source to the failover chain
func (m *MultiSourceManager) AddSource(source interfaces.IHistoricalSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := source.Name()
	if _, exists := m.sources[name]; exists {
		return fmt.Errorf("source %s already exists", name)
	}

	m.sources[name] = source
	m.order = append(m.order, name)
	m.Logger.Info("Added source: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

// GetSource retrieves a source by name
func (m *MultiSourceManager) GetSource(name string) (interfaces.IHistoricalSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	source, exists := m.sources[name]
	if !exists {
		return nil, fmt.Errorf("source %s not found", name)
	}
	return source, nil
}

// -----------------------------------------------------------------------------

// GetAllSources returns the chain in failover order
func (m *MultiSourceManager) GetAllSources() []interfaces.IHistoricalSource {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]interfaces.IHistoricalSource, 0, len(m.order))
	for _, name := range m.order {
		list = append(list, m.sources[name])
	}
	return list
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) Name() string {
	return "MultiSourceManager"
}

// -----------------------------------------------------------------------------

// FetchHistory asks each source in turn. Validation errors stop the chain
// since no other source would accept the selection either.
func (m *MultiSourceManager) FetchHistory(ctx context.Context, sel models.MSelection) ([]models.MHistoricalPoint, error) {
	sources := m.GetAllSources()
	if len(sources) == 0 {
		return nil, helpers.NewDataSourceError("no historical sources configured", nil)
	}

	var errs []error
	for _, src := range sources {
		points, err := src.FetchHistory(ctx, sel)
		if err == nil {
			return points, nil
		}

		var vErr *helpers.ValidationError
		if errors.As(err, &vErr) || ctx.Err() != nil {
			return nil, err
		}

		m.Logger.Warning("Source %s failed for %s: %v", src.Name(), sel, err)
		errs = append(errs, err)
	}

	if len(errs) == 1 {
		return nil, errs[0]
	}
	return nil, fmt.Errorf("all %d sources failed: %w", len(errs), errors.Join(errs...))
}
