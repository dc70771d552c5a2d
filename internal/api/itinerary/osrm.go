package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

const defaultOracleTimeout = 5 * time.Second

// OSRMOracle queries the table service of an OSRM routing server.
type OSRMOracle struct {
	baseURL string
	profile string
	timeout time.Duration
	client  *http.Client
}

func NewOSRMOracle(baseURL, profile string, timeout time.Duration, client *http.Client) *OSRMOracle {
	if profile == "" {
		profile = "driving"
	}
	if timeout <= 0 {
		timeout = defaultOracleTimeout
	}
	if client == nil {
		client = &http.Client{}
	}
	return &OSRMOracle{
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: profile,
		timeout: timeout,
		client:  client,
	}
}

type osrmTable struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Durations [][]*float64 `json:"durations"`
}

func (o *OSRMOracle) PairwiseDurations(ctx context.Context, locations []types.Location) (Matrix, error) {
	ctx, span := otel.Tracer("OSRMOracle").Start(ctx, "PairwiseDurations", trace.WithAttributes(
		attribute.Int("locations.count", len(locations)),
		attribute.String("osrm.profile", o.profile),
	))
	defer span.End()

	if len(locations) == 0 {
		return Matrix{}, nil
	}

	m, err := o.table(ctx, locations)
	if err != nil {
		metrics.RecordExternalError(ctx, "oracle")
		span.RecordError(err)
		span.SetStatus(codes.Error, "table request failed")
		return nil, types.NewExternalServiceError("oracle", "table", err)
	}
	span.SetStatus(codes.Ok, "durations fetched")
	return m, nil
}

func (o *OSRMOracle) table(ctx context.Context, locations []types.Location) (Matrix, error) {
	coords := make([]string, len(locations))
	for i, l := range locations {
		coords[i] = strconv.FormatFloat(l.Longitude, 'f', 6, 64) + "," + strconv.FormatFloat(l.Latitude, 'f', 6, 64)
	}
	url := fmt.Sprintf("%s/table/v1/%s/%s?annotations=duration", o.baseURL, o.profile, strings.Join(coords, ";"))

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", types.ErrTimeout, err)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var table osrmTable
	if err := json.Unmarshal(body, &table); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || table.Code != "Ok" {
		return nil, fmt.Errorf("osrm returned status %d code %q: %s", resp.StatusCode, table.Code, table.Message)
	}
	if len(table.Durations) != len(locations) {
		return nil, fmt.Errorf("osrm returned %d rows for %d locations", len(table.Durations), len(locations))
	}

	m := make(Matrix, len(locations))
	for i, row := range table.Durations {
		if len(row) != len(locations) {
			return nil, fmt.Errorf("osrm row %d has %d columns, want %d", i, len(row), len(locations))
		}
		m[i] = make([]time.Duration, len(row))
		for j, seconds := range row {
			if seconds == nil {
				m[i][j] = Unreachable
				continue
			}
			m[i][j] = time.Duration(*seconds * float64(time.Second))
		}
	}
	return m, nil
}
