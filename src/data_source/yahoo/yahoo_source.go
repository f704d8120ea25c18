package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"stock-forecast/src/helpers"
	"stock-forecast/src/interfaces"
	"stock-forecast/src/logger"
	"stock-forecast/src/models"
	"stock-forecast/src/utils"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

	// DateLayout is the wire format of MHistoricalPoint.Date.
	DateLayout = "2006-01-02 15:04:05-07:00"
)

// YahooFinanceSource fetches daily closes from the Yahoo chart API.
type YahooFinanceSource struct {
	BaseURL string
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) Name() string {
	return "yahoo"
}

// -----------------------------------------------------------------------------

func NewYahooFinanceSource(netMgr interfaces.INetworkManager, log *logger.Logger) *YahooFinanceSource {
	return &YahooFinanceSource{
		BaseURL: DefaultBaseURL,
		Network: netMgr,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

// FetchHistory returns one point per trading day in the selection's period,
// oldest first.
func (s *YahooFinanceSource) FetchHistory(ctx context.Context, sel models.MSelection) ([]models.MHistoricalPoint, error) {
	symbol := strings.ToUpper(strings.TrimSpace(sel.Symbol))
	if symbol == "" {
		return nil, helpers.NewValidationError("symbol is required")
	}
	period, err := models.ParsePeriod(string(sel.Period))
	if err != nil {
		return nil, helpers.NewValidationError(err.Error())
	}

	params := map[string]string{
		"interval":       "1d",
		"range":          string(period),
		"includePrePost": "false",
	}

	body, err := s.Network.Get(ctx, s.BaseURL+url.PathEscape(symbol), params)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}

	points, err := ParseChartResponse(symbol, body)
	if err != nil {
		return nil, err
	}

	s.Logger.Debug("YahooFinance: %s/%s returned %d points", symbol, period, len(points))
	return points, nil
}

// -----------------------------------------------------------------------------

type YahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency             string  `json:"currency"`
				Symbol               string  `json:"symbol"`
				ExchangeName         string  `json:"exchangeName"`
				Gmtoffset            int     `json:"gmtoffset"`
				Timezone             string  `json:"timezone"`
				ExchangeTimezoneName string  `json:"exchangeTimezoneName"`
				RegularMarketPrice   float64 `json:"regularMarketPrice"`
				DataGranularity      string  `json:"dataGranularity"`
				Range                string  `json:"range"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"` // null on halted days
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// -----------------------------------------------------------------------------

// ParseChartResponse turns a chart payload into chronological points dated in
// the exchange's own timezone. Null or non-positive closes are skipped.
func ParseChartResponse(symbol string, data []byte) ([]models.MHistoricalPoint, error) {
	var resp YahooChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, helpers.NewDataSourceError("yahoo: malformed chart response for "+symbol, err)
	}

	if resp.Chart.Error != nil {
		return nil, helpers.NewDataSourceError(
			fmt.Sprintf("yahoo api error for %s: %s - %s", symbol, resp.Chart.Error.Code, resp.Chart.Error.Description), nil)
	}

	if len(resp.Chart.Result) == 0 {
		return nil, helpers.NewDataSourceError("yahoo: no result for "+symbol, nil)
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		if len(result.Timestamp) == 0 {
			return []models.MHistoricalPoint{}, nil
		}
		return nil, helpers.NewDataSourceError("yahoo: no quote data for "+symbol, nil)
	}

	closes := result.Indicators.Quote[0].Close
	if len(closes) != len(result.Timestamp) {
		return nil, helpers.NewDataSourceError(
			fmt.Sprintf("yahoo: %s has %d timestamps but %d closes", symbol, len(result.Timestamp), len(closes)), nil)
	}

	loc := exchangeLocation(symbol, result.Meta.ExchangeTimezoneName)

	type bar struct {
		ts    int64
		close float64
	}
	bars := make([]bar, 0, len(closes))
	for i, ts := range result.Timestamp {
		if closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		bars = append(bars, bar{ts: ts, close: *closes[i]})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].ts < bars[j].ts })

	points := make([]models.MHistoricalPoint, 0, len(bars))
	for _, b := range bars {
		points = append(points, models.MHistoricalPoint{
			Date:  time.Unix(b.ts, 0).In(loc).Format(DateLayout),
			Price: b.close,
		})
	}
	return points, nil
}

// -----------------------------------------------------------------------------

func exchangeLocation(symbol, tzName string) *time.Location {
	if tzName != "" {
		if loc, err := time.LoadLocation(tzName); err == nil {
			return loc
		}
	}
	if loc := utils.GetCalendar(symbol).Timezone; loc != nil {
		return loc
	}
	return time.UTC
}
