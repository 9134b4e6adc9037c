package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3URL(t *testing.T) {
	bucket, key, err := ParseS3URL("s3://eli-media/snapshots/2024/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "eli-media", bucket)
	assert.Equal(t, "snapshots/2024/a.jpg", key)

	for _, bad := range []string{"https://x/y", "s3://bucket", "s3:///key", "::"} {
		_, _, err := ParseS3URL(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseTraffic(t *testing.T) {
	raw := []byte(`{"viewer":{"accounts":[{"httpRequests1mGroups":[
		{"sum":{"requests":120,"threats":3},"datetimeMinute":{"datetime":"2024-05-01T10:00:00Z"}},
		{"sum":{"requests":90,"threats":0},"datetimeMinute":{"datetime":"2024-05-01T10:01:00Z"}}
	]}]}}`)

	series, err := parseTraffic(raw)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "2024-05-01T10:00:00Z", series[0].T)
	assert.EqualValues(t, 120, series[0].Requests)
	assert.EqualValues(t, 3, series[0].Threats)

	empty, err := parseTraffic([]byte(`{"viewer":{"accounts":[]}}`))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestNilClientsDegrade(t *testing.T) {
	var v *VertexClient
	res := v.GenerateJSON(context.Background(), GenerateRequest{Prompt: "x"})
	assert.False(t, res.Enabled)
	assert.Equal(t, "Vertex not configured", res.Reason)
	assert.Nil(t, res.Output)

	var cf *CloudflareClient
	traffic := cf.FetchAnalytics(context.Background(), time.Now())
	assert.False(t, traffic.Enabled)
	assert.NotNil(t, traffic.Series)
}

func TestExtractHostPort(t *testing.T) {
	assert.Equal(t, "ch.local:9000", extractHostPort("http://ch.local"))
	assert.Equal(t, "ch.local:9440", extractHostPort("https://ch.local"))
	assert.Equal(t, "ch.local:9001", extractHostPort("clickhouse://ch.local:9001/db"))
	assert.Equal(t, "ch.local", extractHostname("https://ch.local:9440"))
}
