package prompts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkflow_Prompts_LoadEmbeddedTemplates(t *testing.T) {
	t.Parallel()

	templates, err := Load()
	require.NoError(t, err)

	names := []string{
		Generic,
		"DNA_STRUCTURAL", "DNA_RISK_MARKERS", "DNA_STRAIN_MATCHES", "DNA_FINGERPRINT",
		"ORACLE_HISTORICAL", "ORACLE_VULNERABILITY_MAP", "ORACLE_ATTACK_SIMULATIONS", "ORACLE_PREDICTIONS",
		"MESH_CHAIN_ANALYSIS", "MESH_BRIDGES", "MESH_CORRELATED", "MESH_MAP",
	}
	for _, name := range names {
		tmpl, ok := templates.Get(name)
		require.True(t, ok, "template %s should be embedded", name)
		require.NotEmpty(t, tmpl)
	}

	_, ok := templates.Get("NO_SUCH_TEMPLATE")
	require.False(t, ok)
}
