package hermes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func robotsServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCheckRobots(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"allowed", http.StatusOK, "User-agent: *\nDisallow: /admin\n", nil},
		{"disallowed", http.StatusOK, "User-agent: *\nDisallow: /pentaho\n", ErrRobotsDisallowed},
		{"missing", http.StatusNotFound, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := robotsServer(t, tt.status, tt.body)
			app := newExtractor("hermes", testConfig(nil), &recordingLogger{}, testEngine())

			err := app.checkRobots(context.Background(), server.URL+"/pentaho/content/saiku-ui/index.html")
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVidasOperadoraHonorsRobots(t *testing.T) {
	server := robotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /\n")
	ui := newFakeUI()
	logger := &recordingLogger{}
	eng := testEngine()
	eng.DashboardURL = server.URL + "/index.html"
	app := newExtractor("hermes", testConfig(map[string]interface{}{"CHECK_ROBOTS_TXT": true}), logger, eng)
	app.SetLauncher(ui.launcher())

	_, err := app.VidasOperadora(context.Background(), []string{"368253"})
	require.ErrorIs(t, err, ErrRobotsDisallowed)
	assert.Empty(t, ui.navigated)
}
