package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBeltOrdering(t *testing.T) {
	belts := Belts()
	for i := 0; i < len(belts)-1; i++ {
		next, ok := belts[i].Next()
		require.True(t, ok, "belt %s should have a successor", belts[i])
		require.Equal(t, belts[i+1], next)
		require.Equal(t, PromotionThreshold, belts[i].Threshold())
	}
	_, ok := Black.Next()
	require.False(t, ok)
	require.Zero(t, Black.Threshold())
}

func TestParseBelt(t *testing.T) {
	belt, ok := ParseBelt(" Purple ")
	require.True(t, ok)
	require.Equal(t, Purple, belt)

	belt, ok = ParseBelt("orange")
	require.False(t, ok)
	require.Equal(t, White, belt)
	require.Equal(t, White, BeltOrWhite("coral"))
}

func TestBeltJSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		Belt Belt `json:"belt"`
	}{Belt: Brown})
	require.NoError(t, err)
	require.JSONEq(t, `{"belt":"brown"}`, string(raw))

	var decoded struct {
		Belt Belt `json:"belt"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"belt":"blue"}`), &decoded))
	require.Equal(t, Blue, decoded.Belt)
	require.Error(t, json.Unmarshal([]byte(`{"belt":"grey"}`), &decoded))
}

func TestActivityTypeDefaults(t *testing.T) {
	require.Equal(t, 1, Training.DefaultPoints())
	require.Equal(t, 50, Tournament.DefaultPoints())
	require.True(t, Penalty.Deducts())
	require.True(t, Misconduct.Deducts())
	require.False(t, Tournament.Deducts())
	require.False(t, ActivityType("sparring").Valid())
	require.Equal(t, "sparring", ActivityType("sparring").Label())
	require.Equal(t, "Turnier", Tournament.Label())
}
