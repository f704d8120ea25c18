package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"stock-forecast/src/helpers"
	"stock-forecast/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------

// selectionFromQuery reads ?symbol=&period=, falling back to the configured
// defaults.
func (s *FastAPIServer) selectionFromQuery(c *gin.Context) (models.MSelection, error) {
	symbol := strings.ToUpper(strings.TrimSpace(c.DefaultQuery("symbol", s.Config.DataSource.DefaultSymbol)))
	if symbol == "" {
		return models.MSelection{}, helpers.NewValidationError("symbol is required")
	}

	periodStr := c.Query("period")
	if periodStr == "" {
		periodStr = s.Config.DataSource.DefaultPeriod
	}
	period, err := models.ParsePeriod(periodStr)
	if err != nil {
		return models.MSelection{}, helpers.NewValidationError(err.Error())
	}

	return models.MSelection{Symbol: symbol, Period: period}, nil
}

// -----------------------------------------------------------------------------

// history serves from cache unless fresh is set, then refills the cache.
func (s *FastAPIServer) history(ctx context.Context, sel models.MSelection, fresh bool) ([]models.MHistoricalPoint, error) {
	if s.Cache != nil && !fresh {
		if points, ok := s.Cache.Get(ctx, sel); ok {
			return points, nil
		}
	}

	points, err := s.Source.FetchHistory(ctx, sel)
	if err != nil {
		return nil, err
	}
	if points == nil {
		points = []models.MHistoricalPoint{}
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, sel, points); err != nil {
			s.Errors.Handle(err, "cache write for "+sel.String())
		}
	}
	return points, nil
}

// -----------------------------------------------------------------------------

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var vErr *helpers.ValidationError
	var nErr *helpers.NetworkError
	var dsErr *helpers.DataSourceError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.As(err, &nErr), errors.As(err, &dsErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// -----------------------------------------------------------------------------

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// -----------------------------------------------------------------------------

func encodeData(v interface{}) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("[]")
	}
	return raw
}
