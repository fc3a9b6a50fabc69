package decision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelsec/aegis/internal/models"
)

func pol(severity string) models.Policy {
	return models.Policy{PolicyID: "P", Severity: severity}
}

func TestDecideEmptySet(t *testing.T) {
	require.Equal(t, NoActionRequired, Decide(nil))
	require.Equal(t, NoActionRequired, Decide([]models.Policy{}))
}

func TestDecideCriticalTriggersImmediate(t *testing.T) {
	sets := [][]models.Policy{
		{pol(models.SeverityCritical)},
		{pol(models.SeverityLow), pol(models.SeverityCritical)},
		{pol(models.SeverityHigh), pol(models.SeverityCritical), pol(models.SeverityMedium)},
	}
	for _, set := range sets {
		require.Equal(t, ImmediateActionRequired, Decide(set))
	}
}

func TestDecideHighAndBelowIsStandard(t *testing.T) {
	// HIGH alone does not cross the threshold; only CRITICAL does.
	sets := [][]models.Policy{
		{pol(models.SeverityHigh)},
		{pol(models.SeverityLow)},
		{pol(models.SeverityMedium), pol(models.SeverityHigh)},
		{pol(models.SeverityLow), pol(models.SeverityMedium)},
	}
	for _, set := range sets {
		require.Equal(t, StandardMitigationRequired, Decide(set))
	}
}

func TestDecideUnknownSeverityRanksLow(t *testing.T) {
	require.Equal(t, StandardMitigationRequired, Decide([]models.Policy{pol("BOGUS")}))
}

func TestMaxSeverity(t *testing.T) {
	require.Equal(t, models.SeverityLow, MaxSeverity(nil))
	require.Equal(t, models.SeverityCritical, MaxSeverity([]models.Policy{
		pol(models.SeverityMedium), pol(models.SeverityCritical), pol(models.SeverityHigh),
	}))
	require.Equal(t, models.SeverityMedium, MaxSeverity([]models.Policy{pol(models.SeverityMedium)}))
}

func TestRank(t *testing.T) {
	require.Equal(t, 1, Rank(models.SeverityLow))
	require.Equal(t, 2, Rank(models.SeverityMedium))
	require.Equal(t, 3, Rank(models.SeverityHigh))
	require.Equal(t, 4, Rank(models.SeverityCritical))
	require.Equal(t, 1, Rank("UNKNOWN"))
}
