package hermes

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFilename(t *testing.T) {
	name := generateFilename("entity 368253: no/table", "html")
	assert.True(t, strings.HasPrefix(name, time.Now().Format("2006-01-02")+"_"))
	assert.True(t, strings.HasSuffix(name, "_entity_368253__no_table.html"))
}

func TestGenerateExportFileName(t *testing.T) {
	got := generateExportFileName("out", "hermes", "vidas", "csv")
	assert.Equal(t, filepath.Join("out", "hermes", time.Now().Format("2006_01_02")+"_vidas.csv"), got)
}

func TestSplitFlag(t *testing.T) {
	tests := []struct {
		arg, name, value string
	}{
		{"--entities=1,2", "entities", "1,2"},
		{"-v", "v", ""},
		{"headless=false", "headless", "false"},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			name, value := splitFlag(tt.arg)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.value, value)
		})
	}
}

func TestGetBaseUrl(t *testing.T) {
	base, err := getBaseUrl("https://www.ans.gov.br/pentaho/content/saiku-ui/index.html?x=1")
	require.NoError(t, err)
	assert.Equal(t, "https://www.ans.gov.br", base)

	_, err = getBaseUrl("index.html")
	assert.Error(t, err)
}
