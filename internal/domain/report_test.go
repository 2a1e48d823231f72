package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNetwork = "069000123"

func TestBuildReport(t *testing.T) {
	frozen := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() { SetClock(nil) })

	report := BuildReport(testNetwork, []Measurement{
		m("1374", ptr(80), "2024-05-01T09:00:00Z"),
		m("1374", ptr(70), "2023-05-01T09:00:00Z"),
		m("1347", ptr(10), "2024-05-01T09:00:00Z"),
		m("1302", nil, "2024-05-01T09:00:00Z"),
	}, DefaultRegistry())

	assert.Equal(t, testNetwork, report.NetworkCode)
	assert.Equal(t, 4, report.MeasurementCount)
	assert.Equal(t, frozen, report.GeneratedAt)
	assert.Equal(t, 80.0, report.Profile[ParamCalcium])
	assert.Equal(t, 122.0, report.Profile[ParamBicarbonate])

	t.Run("latest cards", func(t *testing.T) {
		require.Len(t, report.Latest, 4)
		assert.Equal(t, ParamCalcium, report.Latest[0].Name)
		assert.Equal(t, ParamPH, report.Latest[1].Name)
		assert.Nil(t, report.Latest[1].Value)
		assert.Equal(t, ParamTAC, report.Latest[2].Name)

		derived := report.Latest[3]
		assert.Equal(t, DerivedBicarbonateLabel, derived.Name)
		assert.True(t, derived.Derived)
		require.NotNil(t, derived.Value)
		assert.Equal(t, 122.0, *derived.Value)
		assert.Equal(t, "2024-05-01T09:00:00Z", derived.SampledAt)
	})

	t.Run("trends", func(t *testing.T) {
		require.Len(t, report.Trends, 4)
		ca := report.Trends[0]
		assert.Equal(t, DefaultColors()[ParamCalcium], ca.Color)
		require.Len(t, ca.Points, 2)
		assert.Equal(t, 70.0, ca.Points[0].Y)

		assert.Empty(t, report.Trends[1].Points)

		last := report.Trends[3]
		assert.True(t, last.Derived)
		require.Len(t, last.Points, 1)
		assert.Equal(t, 122.0, last.Points[0].Y)
	})

	t.Run("no TAC means no derived series", func(t *testing.T) {
		r := BuildReport(testNetwork, []Measurement{m("1374", ptr(1), "2024-01-01")}, DefaultRegistry())
		for _, card := range r.Latest {
			assert.False(t, card.Derived)
		}
		for _, tr := range r.Trends {
			assert.False(t, tr.Derived)
		}
	})
}

func TestParseReportRequest(t *testing.T) {
	t.Run("payload", func(t *testing.T) {
		req, err := ParseReportRequest(RawEvent{Value: []byte(`{"network_code":" 069000123 "}`)})
		require.NoError(t, err)
		assert.Equal(t, testNetwork, req.NetworkCode)
	})

	t.Run("key fallback", func(t *testing.T) {
		req, err := ParseReportRequest(RawEvent{Key: []byte(testNetwork)})
		require.NoError(t, err)
		assert.Equal(t, testNetwork, req.NetworkCode)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseReportRequest(RawEvent{Value: []byte("{nope")})
		assert.ErrorIs(t, err, ErrDataShape)
	})

	t.Run("no code", func(t *testing.T) {
		_, err := ParseReportRequest(RawEvent{Value: []byte(`{}`)})
		assert.ErrorIs(t, err, ErrDataShape)
	})
}

func TestSerializeReport(t *testing.T) {
	r := WaterReport{
		NetworkCode: testNetwork,
		Profile:     IonProfile{ParamCalcium: 98.1},
		GeneratedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	out, err := SerializeReport(r)
	require.NoError(t, err)

	assert.Equal(t, []byte(testNetwork), out.Key)
	assert.Equal(t, testNetwork, out.Headers["network_code"])
	assert.Equal(t, "2025-05-01T12:00:00Z", out.Headers["generated_at"])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Value, &decoded))
	assert.Equal(t, testNetwork, decoded["network_code"])
	assert.Equal(t, 98.1, decoded["profile"].(map[string]any)[ParamCalcium])
}
