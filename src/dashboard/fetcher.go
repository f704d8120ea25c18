package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"stock-forecast/src/helpers"
	"stock-forecast/src/interfaces"
	"stock-forecast/src/models"
)

// HistoricalFetcher loads a selection's history from the server's
// /api/stocks endpoint. It makes exactly one request per call; the network
// manager it is given should be configured with zero retries.
type HistoricalFetcher struct {
	BaseURL string
	Network interfaces.INetworkManager
}

func NewHistoricalFetcher(baseURL string, netMgr interfaces.INetworkManager) *HistoricalFetcher {
	return &HistoricalFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Network: netMgr,
	}
}

// Fetch returns the chronological series for sel. Transport failures and
// non-2xx answers come back as *helpers.NetworkError, an undecodable body
// as *helpers.DataSourceError.
func (f *HistoricalFetcher) Fetch(ctx context.Context, sel models.MSelection) ([]models.MHistoricalPoint, error) {
	body, err := f.Network.Get(ctx, f.BaseURL+"/api/stocks", map[string]string{
		"symbol": sel.Symbol,
		"period": string(sel.Period),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch history %s: %w", sel, err)
	}

	var points []models.MHistoricalPoint
	if err := json.Unmarshal(body, &points); err != nil {
		return nil, helpers.NewDataSourceError("malformed /api/stocks response for "+sel.String(), err)
	}
	if points == nil {
		points = []models.MHistoricalPoint{}
	}
	return points, nil
}
