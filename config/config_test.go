package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "pagetime.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	v.Set("config", writeConfig(t, ""))

	config, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 3, *config.Test.Iterations)
	assert.Equal(t, 60*time.Second, config.Test.TimeoutDuration())
	assert.Equal(t, "chrome", *config.Browser.Name)
	assert.Equal(t, "cdp", *config.Browser.Driver)
	assert.Equal(t, "http://localhost:9222", *config.Browser.DevToolsURL)
	assert.Equal(t, "xml", *config.Output.Format)
	assert.True(t, *config.Output.Pretty)
	assert.False(t, *config.Output.Raw)
	assert.Equal(t, "stdout", *config.Logging.Driver)
	assert.Nil(t, config.Logging.InfluxDB)
	assert.Equal(t, 95.0, *config.Baseline.Confidence)
	assert.Equal(t, ":8080", *config.Serving.Addr)
	assert.Equal(t, "pagetime-tests", *config.Serving.Queue)
	assert.Equal(t, 24*time.Hour, config.Serving.ResultTTL)
	assert.Equal(t, 100, *config.Serving.MaxIterations)
}

func TestLoad_File(t *testing.T) {
	v := viper.New()
	v.Set("config", writeConfig(t, `
test:
  iterations: 10
browser:
  name: firefox
  windowSize: 1024x768
output:
  format: json
logging:
  driver: influxdb
  influxdb:
    host: http://localhost:8086
    token: secret
    org: pagetime
    bucket: runs
`))

	config, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 10, *config.Test.Iterations)
	assert.Equal(t, "firefox", *config.Browser.Name)
	assert.Equal(t, "1024x768", *config.Browser.WindowSize)
	assert.Equal(t, "json", *config.Output.Format)
	require.NotNil(t, config.Logging.InfluxDB)
	assert.Equal(t, "runs", *config.Logging.InfluxDB.Bucket)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("PAGETIME_TEST_ITERATIONS", "7")
	v := viper.New()
	v.Set("config", writeConfig(t, "test:\n  iterations: 10\n"))

	config, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 7, *config.Test.Iterations)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	v := viper.New()
	v.Set("config", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load(v)
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		contents  string
		wantField string
	}{
		{name: "ZeroIterations", contents: "test:\n  iterations: 0\n", wantField: "Iterations"},
		{name: "UnknownBrowser", contents: "browser:\n  name: safari\n", wantField: "Name"},
		{name: "UnknownDriver", contents: "browser:\n  driver: selenium\n", wantField: "Driver"},
		{name: "BadWindowSize", contents: "browser:\n  windowSize: big\n", wantField: "WindowSize"},
		{name: "UnknownFormat", contents: "output:\n  format: csv\n", wantField: "Format"},
		{name: "InfluxDBWithoutSettings", contents: "logging:\n  driver: influxdb\n", wantField: "InfluxDB"},
		{name: "ZeroMaxIterations", contents: "serving:\n  maxIterations: 0\n", wantField: "MaxIterations"},
		{name: "UnsupportedConfidence", contents: "baseline:\n  confidence: 42\n", wantField: "Confidence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set("config", writeConfig(t, tt.contents))

			_, err := Load(v)
			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr), "got %v", err)
			assert.Contains(t, validationErr.Error(), tt.wantField)
		})
	}
}

func TestParseWindowSize(t *testing.T) {
	tests := []struct {
		input      string
		wantWidth  int
		wantHeight int
		wantErr    bool
	}{
		{input: "1280x800", wantWidth: 1280, wantHeight: 800},
		{input: "1x1", wantWidth: 1, wantHeight: 1},
		{input: "0x800", wantErr: true},
		{input: "1280*800", wantErr: true},
		{input: "1280x", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			width, height, err := ParseWindowSize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantWidth, width)
			assert.Equal(t, tt.wantHeight, height)
		})
	}
}
