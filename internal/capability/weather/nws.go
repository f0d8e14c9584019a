package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the National Weather Service API.
	DefaultBaseURL = "https://api.weather.gov"

	// UserAgent identifies the app to the NWS API, which requires one.
	UserAgent = "weather-app/1.0"

	requestTimeout  = 30 * time.Second
	forecastPeriods = 5
)

// Messages returned to the model when the API cannot help.
const (
	msgAlertsUnavailable   = "Unable to fetch alerts or no alerts found."
	msgNoActiveAlerts      = "No active alerts for this state."
	msgPointsUnavailable   = "Unable to fetch forecast data for this location."
	msgForecastUnavailable = "Unable to fetch detailed forecast."
)

// NWS is a small client for the National Weather Service API.
type NWS struct {
	log     *slog.Logger
	http    *http.Client
	baseURL string
}

// NewNWS creates a client. A nil httpClient uses one with a 30s timeout; an empty
// baseURL uses DefaultBaseURL.
func NewNWS(log *slog.Logger, httpClient *http.Client, baseURL string) *NWS {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &NWS{
		log:     log.With("component", "nws"),
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type alertsResponse struct {
	Features *[]struct {
		Properties alertProperties `json:"properties"`
	} `json:"features"`
}

type alertProperties struct {
	Event       string `json:"event"`
	AreaDesc    string `json:"areaDesc"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Instruction string `json:"instruction"`
}

type pointsResponse struct {
	Properties struct {
		Forecast string `json:"forecast"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Periods []forecastPeriod `json:"periods"`
	} `json:"properties"`
}

type forecastPeriod struct {
	Name             string `json:"name"`
	Temperature      int    `json:"temperature"`
	TemperatureUnit  string `json:"temperatureUnit"`
	WindSpeed        string `json:"windSpeed"`
	WindDirection    string `json:"windDirection"`
	DetailedForecast string `json:"detailedForecast"`
}

// Alerts describes the active alerts for a two-letter state code.
func (n *NWS) Alerts(ctx context.Context, state string) string {
	var resp alertsResponse
	if err := n.get(ctx, n.baseURL+"/alerts/active/area/"+strings.ToUpper(state), &resp); err != nil {
		n.log.Warn("Fetching alerts failed", "state", state, "error", err)

		return msgAlertsUnavailable
	}

	if resp.Features == nil {
		return msgAlertsUnavailable
	}

	if len(*resp.Features) == 0 {
		return msgNoActiveAlerts
	}

	alerts := make([]string, 0, len(*resp.Features))
	for _, f := range *resp.Features {
		alerts = append(alerts, formatAlert(f.Properties))
	}

	return strings.Join(alerts, "\n---\n")
}

// Forecast describes the next periods of the forecast for a location.
func (n *NWS) Forecast(ctx context.Context, latitude, longitude float64) string {
	pointsURL := fmt.Sprintf("%s/points/%s,%s", n.baseURL, formatCoord(latitude), formatCoord(longitude))

	var points pointsResponse
	if err := n.get(ctx, pointsURL, &points); err != nil || points.Properties.Forecast == "" {
		n.log.Warn("Fetching forecast grid failed", "url", pointsURL, "error", err)

		return msgPointsUnavailable
	}

	var forecast forecastResponse
	if err := n.get(ctx, points.Properties.Forecast, &forecast); err != nil {
		n.log.Warn("Fetching forecast failed", "url", points.Properties.Forecast, "error", err)

		return msgForecastUnavailable
	}

	periods := forecast.Properties.Periods
	if len(periods) > forecastPeriods {
		periods = periods[:forecastPeriods]
	}

	out := make([]string, 0, len(periods))
	for _, p := range periods {
		out = append(out, formatPeriod(p))
	}

	return strings.Join(out, "\n---\n")
}

func (n *NWS) get(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/geo+json")

	n.log.Debug("GET", "url", url)

	resp, err := n.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)

		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func orUnknown(v, fallback string) string {
	if v == "" {
		return fallback
	}

	return v
}

func formatAlert(p alertProperties) string {
	return fmt.Sprintf("Event: %s\nArea: %s\nSeverity: %s\nDescription: %s\nInstructions: %s",
		orUnknown(p.Event, "Unknown"),
		orUnknown(p.AreaDesc, "Unknown"),
		orUnknown(p.Severity, "Unknown"),
		orUnknown(p.Description, "No description available"),
		orUnknown(p.Instruction, "No specific instructions provided"),
	)
}

func formatPeriod(p forecastPeriod) string {
	return fmt.Sprintf("%s:\nTemperature: %d°%s\nWind: %s %s\nForecast: %s",
		p.Name, p.Temperature, p.TemperatureUnit, p.WindSpeed, p.WindDirection, p.DetailedForecast)
}

// formatCoord renders a coordinate the way the points endpoint accepts it.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
