package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	graphql "github.com/hasura/go-graphql-client"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"eli-dashboard/internal/config"
	"eli-dashboard/internal/models"
	"eli-dashboard/internal/util"
)

const httpRequestsQuery = `query ($accountTag: String!, $since: Time!) {
  viewer {
    accounts(filter: { accountTag: $accountTag }) {
      httpRequests1mGroups(limit: 120, filter: { datetime_geq: $since }) {
        sum { requests threats }
        datetimeMinute: dimensions { datetime }
      }
    }
  }
}`

type cfAnalyticsResponse struct {
	Viewer struct {
		Accounts []struct {
			Groups []struct {
				Sum struct {
					Requests int64 `json:"requests"`
					Threats  int64 `json:"threats"`
				} `json:"sum"`
				DatetimeMinute struct {
					Datetime string `json:"datetime"`
				} `json:"datetimeMinute"`
			} `json:"httpRequests1mGroups"`
		} `json:"accounts"`
	} `json:"viewer"`
}

// TrafficResult mirrors GenerateResult: failures become a warning.
type TrafficResult struct {
	Enabled bool
	Series  []models.TrafficPoint
	Warning string
}

// CloudflareClient reads zone analytics from the Cloudflare GraphQL API. A nil
// *CloudflareClient reports itself as not configured.
type CloudflareClient struct {
	gql       *graphql.Client
	accountID string
	logger    *zap.Logger
}

func NewCloudflareClient(cfg *config.Config) *CloudflareClient {
	cf := cfg.Cloudflare
	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cf.APIToken,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = 15 * time.Second

	util.Info("Cloudflare analytics client initialized", zap.String("endpoint", cf.Endpoint))
	return &CloudflareClient{
		gql:       graphql.NewClient(cf.Endpoint, httpClient),
		accountID: cf.AccountID,
		logger:    util.Named("cloudflare"),
	}
}

func (c *CloudflareClient) Enabled() bool {
	return c != nil && c.gql != nil
}

// FetchAnalytics returns per-minute requests and threats since the given time.
func (c *CloudflareClient) FetchAnalytics(ctx context.Context, since time.Time) TrafficResult {
	if !c.Enabled() {
		return TrafficResult{Enabled: false, Series: []models.TrafficPoint{}}
	}

	vars := map[string]interface{}{
		"accountTag": c.accountID,
		"since":      since.UTC().Format(time.RFC3339),
	}
	raw, err := c.gql.ExecRaw(ctx, httpRequestsQuery, vars)
	if err != nil {
		c.logger.Error("analytics error", zap.Error(err))
		return TrafficResult{Enabled: true, Series: []models.TrafficPoint{}, Warning: "Cloudflare fetch failed"}
	}

	series, err := parseTraffic(raw)
	if err != nil {
		c.logger.Error("analytics decode error", zap.Error(err))
		return TrafficResult{Enabled: true, Series: []models.TrafficPoint{}, Warning: "Cloudflare fetch failed"}
	}
	return TrafficResult{Enabled: true, Series: series}
}

func parseTraffic(raw []byte) ([]models.TrafficPoint, error) {
	var resp cfAnalyticsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode cloudflare analytics: %w", err)
	}
	series := []models.TrafficPoint{}
	if len(resp.Viewer.Accounts) == 0 {
		return series, nil
	}
	for _, g := range resp.Viewer.Accounts[0].Groups {
		series = append(series, models.TrafficPoint{
			T:        g.DatetimeMinute.Datetime,
			Requests: g.Sum.Requests,
			Threats:  g.Sum.Threats,
		})
	}
	return series, nil
}
