package datasource

import (
	"context"
	"errors"
	"io"
	"testing"

	"stock-forecast/src/helpers"
	"stock-forecast/src/interfaces"
	"stock-forecast/src/logger"
	"stock-forecast/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	name   string
	points []models.MHistoricalPoint
	err    error
	calls  int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FetchHistory(context.Context, models.MSelection) ([]models.MHistoricalPoint, error) {
	s.calls++
	return s.points, s.err
}

var sel = models.MSelection{Symbol: "AAPL", Period: models.PeriodOneMonth}

func newManager(sources ...interfaces.IHistoricalSource) *MultiSourceManager {
	return NewMultiSourceManager(sources, logger.NewLoggerWithOutput("ERROR", "msm-test", io.Discard))
}

func TestFetchHistory_FailsOverInOrder(t *testing.T) {
	primary := &stubSource{name: "primary", err: helpers.NewNetworkError("down", 503, nil)}
	backup := &stubSource{name: "backup", points: []models.MHistoricalPoint{{Date: "2024-01-02", Price: 1}}}
	m := newManager(primary, backup)

	points, err := m.FetchHistory(context.Background(), sel)
	require.NoError(t, err)
	assert.Len(t, points, 1)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, backup.calls)
}

func TestFetchHistory_ValidationStopsChain(t *testing.T) {
	primary := &stubSource{name: "primary", err: helpers.NewValidationError("bad symbol")}
	backup := &stubSource{name: "backup"}
	m := newManager(primary, backup)

	_, err := m.FetchHistory(context.Background(), sel)
	var vErr *helpers.ValidationError
	assert.True(t, errors.As(err, &vErr))
	assert.Zero(t, backup.calls)
}

func TestFetchHistory_AllFail(t *testing.T) {
	a := &stubSource{name: "a", err: helpers.NewNetworkError("a", 500, nil)}
	b := &stubSource{name: "b", err: helpers.NewDataSourceError("b", nil)}
	m := newManager(a, b)

	_, err := m.FetchHistory(context.Background(), sel)
	require.Error(t, err)
	var dsErr *helpers.DataSourceError
	assert.True(t, errors.As(err, &dsErr))
}

func TestFetchHistory_NoSources(t *testing.T) {
	_, err := newManager().FetchHistory(context.Background(), sel)
	assert.Error(t, err)
}

func TestAddAndGetSource(t *testing.T) {
	m := newManager(&stubSource{name: "a"})

	assert.Error(t, m.AddSource(&stubSource{name: "a"}))
	require.NoError(t, m.AddSource(&stubSource{name: "b"}))

	all := m.GetAllSources()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name())
	assert.Equal(t, "b", all[1].Name())

	src, err := m.GetSource("b")
	require.NoError(t, err)
	assert.Equal(t, "b", src.Name())

	_, err = m.GetSource("c")
	assert.Error(t, err)
}
