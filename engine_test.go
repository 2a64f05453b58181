package hermes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOverrideEngineDefaults(t *testing.T) {
	eng := getDefaultEngine()
	headless := false
	overrideEngineDefaults(&eng, &Engine{
		Adapter:           PlayWrightEngine,
		Headless:          &headless,
		QueryTimeout:      time.Minute,
		NavigationTimeout: 2 * time.Minute,
		Fields:            []string{"Registro"},
		Pacing:            Pacing{AfterDrag: time.Second},
	})

	assert.Equal(t, PlayWrightEngine, eng.Adapter)
	assert.False(t, eng.isHeadless())
	assert.Equal(t, time.Minute, eng.QueryTimeout)
	assert.Equal(t, 2*time.Minute, eng.NavigationTimeout)
	assert.Equal(t, []string{"Registro"}, eng.Fields)
	assert.Equal(t, time.Second, eng.Pacing.AfterDrag)

	defaults := getDefaultEngine()
	assert.Equal(t, defaults.Categories, eng.Categories)
	assert.Equal(t, defaults.PollInterval, eng.PollInterval)
	assert.Equal(t, defaults.Timeout, eng.Timeout)
	assert.Equal(t, defaults.Pacing.AfterQuery, eng.Pacing.AfterQuery)
}

func TestEngineFromConfig(t *testing.T) {
	eng := engineFromConfig(testConfig(map[string]interface{}{
		"BROWSER_ADAPTER":       "playwright",
		"APP_ENV":               "local",
		"PENTAHO_URL":           "http://saiku.test",
		"QUERY_TIMEOUT_SECONDS": 30,
	}))

	assert.Equal(t, PlayWrightEngine, eng.Adapter)
	assert.False(t, eng.isHeadless())
	assert.Equal(t, "http://saiku.test", eng.DashboardURL)
	assert.Equal(t, 30*time.Second, eng.QueryTimeout)

	eng = engineFromConfig(testConfig(map[string]interface{}{"APP_ENV": "local", "HEADLESS": "true"}))
	assert.True(t, eng.isHeadless())
	assert.Equal(t, 600*time.Second, eng.QueryTimeout)
}

func TestLauncherFor(t *testing.T) {
	for _, adapter := range []string{"", RodEngine, PlayWrightEngine} {
		launch, err := launcherFor(adapter)
		assert.NoError(t, err)
		assert.NotNil(t, launch)
	}
	_, err := launcherFor("selenium")
	assert.Error(t, err)
}
