package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smeup/signmeup-client/internal/bridge"
	"github.com/smeup/signmeup-client/internal/updater"
)

func TestReportStatusJSON(t *testing.T) {
	tests := []struct {
		name    string
		status  bridge.Status
		wantErr bool
	}{
		{
			name:   "available",
			status: bridge.Status{State: bridge.StateAvailable, Info: &updater.UpdateInfo{Version: "1.0.3"}},
		},
		{
			name:   "not available",
			status: bridge.Status{State: bridge.StateNotAvailable, Info: &updater.UpdateInfo{Version: "1.0.2"}},
		},
		{
			name:   "timeout",
			status: bridge.Status{State: bridge.StateTimeout},
		},
		{
			name:    "error",
			status:  bridge.Status{State: bridge.StateError, Error: "feed unreachable"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := reportStatus(&out, tt.status, true)
			if tt.wantErr {
				assert.ErrorIs(t, err, errCheckFailed)
			} else {
				assert.NoError(t, err)
			}

			var decoded map[string]any
			require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
			assert.Equal(t, string(tt.status.State), decoded["status"])
		})
	}
}

func TestReportStatusText(t *testing.T) {
	var out bytes.Buffer
	err := reportStatus(&out, bridge.Status{
		State: bridge.StateAvailable,
		Info:  &updater.UpdateInfo{Version: "1.0.3", ReleaseName: "Spring", ReleaseDate: "2025-04-01"},
	}, false)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "v1.0.3")
	assert.Contains(t, out.String(), "Spring")

	out.Reset()
	require.NoError(t, reportStatus(&out, bridge.Status{State: bridge.StateNotAvailable}, false))
	assert.NotEmpty(t, out.String())

	out.Reset()
	err = reportStatus(&out, bridge.Status{State: bridge.StateError, Error: "boom"}, false)
	assert.ErrorIs(t, err, errCheckFailed)
	assert.Contains(t, err.Error(), "boom")
	assert.Empty(t, out.String())
}

func TestIsTerminalBuffer(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))
}
