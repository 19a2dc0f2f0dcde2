package http

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/vendor-performance/internal/core/domain"
	"github.com/lorrc/vendor-performance/internal/core/services"
)

func f(v float64) *float64 { return &v }

func TestFlexTime_UnmarshalJSON(t *testing.T) {
	want := time.Date(2025, 3, 3, 11, 6, 40, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"epoch number", `1741000000`, want},
		{"epoch string", `"1741000000"`, want},
		{"fractional epoch", `1741000000.5`, want.Add(500 * time.Millisecond)},
		{"rfc3339 utc", `"2025-03-03T11:06:40Z"`, want},
		{"rfc3339 offset", `"2025-03-03T13:06:40+02:00"`, want},
		{"null", `null`, time.Time{}},
		{"empty string", `""`, time.Time{}},
		{"free text", `"yesterday"`, time.Time{}},
		{"naive datetime", `"2025-01-06T10:00:00"`, time.Time{}},
		{"boolean", `true`, time.Time{}},
		{"object", `{"at": 1}`, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got FlexTime
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.True(t, tt.want.Equal(got.Time), "got %s", got.Time)
			if !got.IsZero() {
				assert.Equal(t, time.UTC, got.Location())
			}
		})
	}
}

func TestFlexString_UnmarshalJSON(t *testing.T) {
	var dto struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
		D FlexString `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 5017, "b": " 77 ", "c": null, "d": [1]}`), &dto))

	assert.Equal(t, FlexString("5017"), dto.A)
	assert.Equal(t, FlexString("77"), dto.B)
	assert.Equal(t, FlexString(""), dto.C)
	assert.Equal(t, FlexString(""), dto.D)
}

func TestFlexNumber_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input string
		want  *float64
	}{
		{`4`, f(4)},
		{`"4"`, f(4)},
		{`90.5`, f(90.5)},
		{`null`, nil},
		{`"great"`, nil},
		{`"NaN"`, nil},
		{`true`, nil},
		{`{"stars": 5}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var got FlexNumber
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.Equal(t, tt.want, got.Value)
		})
	}
}

func TestAnalyzeVendorRequest_MalformedFieldsKeepRecord(t *testing.T) {
	body := `{
		"week_start": "2025-03-03",
		"conversations": [
			{"id": "good", "state": "closed", "assignee_id": "a1", "rating": 5,
			 "created_at": 1741000000, "updated_at": 1741007200, "first_response_seconds": 60},
			{"id": "bad", "state": "closed", "assignee_id": "a1", "rating": "great",
			 "created_at": "2025-01-06T10:00:00", "updated_at": "later", "first_response_seconds": "soon"}
		]
	}`

	var req AnalyzeVendorRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	convs := toDomainConversations(req.Conversations)
	require.Len(t, convs, 2)

	bad := convs[1]
	assert.Nil(t, bad.Rating)
	assert.Nil(t, bad.CreatedAt)
	assert.Nil(t, bad.UpdatedAt)
	assert.Nil(t, bad.ResponseLatency)

	detector := services.NewCompositeEscalationDetector(services.NewTextEscalationDetector(nil))
	m := services.NewMetricsAggregator(detector, services.MetricsAggregatorConfig{}).
		ComputeMetrics(domain.AgentIdentity{RawID: "a1"}, convs)

	// Volume and FCR include the bad record; time and CSAT statistics do not
	assert.Equal(t, 2, m.TotalConversations)
	assert.Equal(t, 2, m.ClosedConversations)
	assert.Equal(t, 1, m.CSAT.Count)
	assert.Equal(t, 1, m.ResponseSamples)
	assert.InDelta(t, 2.0, m.MedianResolutionHours, 1e-9)
}

func TestConversationDTO_ToDomain(t *testing.T) {
	t.Run("ratings outside the scale are dropped", func(t *testing.T) {
		for _, rating := range []*float64{nil, f(0), f(6), f(3.5), f(-1), f(1e20)} {
			conv := ConversationDTO{Rating: FlexNumber{Value: rating}}.ToDomain()
			assert.Nil(t, conv.Rating)
		}
		conv := ConversationDTO{Rating: FlexNumber{Value: f(5)}}.ToDomain()
		require.NotNil(t, conv.Rating)
		assert.Equal(t, 5, *conv.Rating)
	})

	t.Run("missing timestamps stay absent", func(t *testing.T) {
		conv := ConversationDTO{ID: "1", State: " Closed "}.ToDomain()
		assert.Nil(t, conv.CreatedAt)
		assert.Nil(t, conv.UpdatedAt)
		assert.True(t, conv.IsClosed())
		_, ok := conv.ResolutionHours()
		assert.False(t, ok)
	})

	t.Run("negative values are clamped or dropped", func(t *testing.T) {
		conv := ConversationDTO{ReopenedCount: -2, FirstResponseSeconds: FlexNumber{Value: f(-5)}}.ToDomain()
		assert.Equal(t, 0, conv.ReopenedCount)
		assert.Nil(t, conv.ResponseLatency)
	})

	t.Run("troubleshooting carried through", func(t *testing.T) {
		conv := ConversationDTO{Troubleshooting: &TroubleshootingDTO{Score: 0.3, PrematureEscalation: true}}.ToDomain()
		require.NotNil(t, conv.Troubleshooting)
		assert.InDelta(t, 0.3, conv.Troubleshooting.Score, 1e-9)
		assert.True(t, conv.Troubleshooting.PrematureEscalation)
	})
}
