package report

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcz17/pagetime/timings"
)

func testSession(t *testing.T) *timings.Session {
	s := timings.NewSession()
	s.AddPageData(map[string]string{"url": "http://example.com", "browserName": "chrome"})

	for i, d := range []float64{100, 200, 300} {
		c := timings.NewCollected(nil)
		c.AddMark(timings.Mark{Name: "navigationStart", StartTime: 1700000000000})
		c.AddMeasurement(timings.Measurement{Mark: timings.Mark{Name: "pageLoadTime", StartTime: 1700000000000}, Duration: d})
		c.AddMeasurement(timings.Measurement{Mark: timings.Mark{Name: "backEndTime", StartTime: 1700000000000}, Duration: d / 3})
		c.AddResourceMeasurement(timings.ResourceMeasurement{
			Measurement:   timings.Measurement{Mark: timings.Mark{Name: "http://cdn.example.com/app.js", StartTime: 12.5}, Duration: float64(i) + 40},
			InitiatorType: "script",
			FetchStart:    12.5,
			RequestStart:  20,
			ResponseEnd:   52.5 + float64(i),
		})
		b := timings.NewRunBuilder()
		require.NoError(t, b.Merge(c))
		run, err := b.Build()
		require.NoError(t, err)
		s.AddRun(run)
	}
	return s
}

// chromeFirstPaintSeconds is a variable so the product is computed in float64.
var chromeFirstPaintSeconds = 1379543366.346558

func TestNumber_String(t *testing.T) {
	tests := []struct {
		value number
		want  string
	}{
		{value: 200, want: "200"},
		{value: 1700000000123, want: "1700000000123"},
		{value: 33.333333333, want: "33.333333"},
		{value: 0.1, want: "0.1"},
		{value: 1.5e-7, want: "0"},
		{value: -0.0000001, want: "0"},
		{value: 12.5, want: "12.5"},
		{value: number(chromeFirstPaintSeconds * 1000), want: "1379543366346.558"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.String())
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, JSON, f)
	assert.Equal(t, "application/json", f.ContentType())

	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}

func TestSerialize_JSON(t *testing.T) {
	data, err := Serialize(testSession(t), Options{Format: JSON, Version: "1.2.3"})
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "1.2.3", got["version"])
	assert.Equal(t, map[string]interface{}{"url": "http://example.com", "browserName": "chrome"}, got["pageData"])
	assert.NotContains(t, got, "runs", "runs should only be written when asked for")

	statistics := got["statistics"].([]interface{})
	require.Len(t, statistics, 2)
	backEnd := statistics[0].(map[string]interface{})
	assert.Equal(t, "backEndTime", backEnd["name"])
	pageLoad := statistics[1].(map[string]interface{})
	assert.Equal(t, "pageLoadTime", pageLoad["name"])
	assert.Equal(t, 100.0, pageLoad["min"])
	assert.Equal(t, 200.0, pageLoad["median"])
	assert.Equal(t, 300.0, pageLoad["max"])

	assert.Contains(t, string(data), `"avg":66.666667`)
	assert.NotContains(t, string(data), "e+")
	assert.NotContains(t, string(data), "\n  ", "compact output should not be indented")
}

func TestSerialize_JSONWithRuns(t *testing.T) {
	data, err := Serialize(testSession(t), Options{Format: JSON, PrettyPrint: true, IncludeRuns: true})
	require.NoError(t, err)

	var got struct {
		Version string `json:"version"`
		Runs    []struct {
			Marks                []map[string]interface{} `json:"marks"`
			Measurements         []map[string]interface{} `json:"measurements"`
			ResourceMeasurements []map[string]interface{} `json:"resourceMeasurements"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Empty(t, got.Version)
	require.Len(t, got.Runs, 3)
	assert.Equal(t, map[string]interface{}{"name": "navigationStart", "startTime": 1700000000000.0}, got.Runs[0].Marks[0])
	require.Len(t, got.Runs[0].ResourceMeasurements, 1)

	resource := got.Runs[0].ResourceMeasurements[0]
	for _, key := range []string{"name", "startTime", "duration", "initiatorType", "fetchStart", "responseEnd", "requestStart"} {
		assert.Containsf(t, resource, key, "expected resource attribute %s", key)
	}
	for _, key := range []string{"redirectStart", "redirectEnd", "domainLookupStart", "domainLookupEnd", "connectStart", "connectEnd", "secureConnectionStart", "responseStart"} {
		assert.NotContainsf(t, resource, key, "expected zero resource attribute %s to be omitted", key)
	}
	assert.Contains(t, string(data), "\n  ")
}

func TestSerialize_XML(t *testing.T) {
	data, err := Serialize(testSession(t), Options{Format: XML, PrettyPrint: true, IncludeRuns: true, Version: "1.2.3"})
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.HasPrefix(out, xml.Header))
	assert.Contains(t, out, `<timingSession version="1.2.3">`)
	assert.Contains(t, out, "<entry>\n      <key>browserName</key>\n      <value>chrome</value>\n    </entry>")
	assert.Contains(t, out, `<mark name="navigationStart" startTime="1700000000000"></mark>`)
	assert.Contains(t, out, `<measurement name="backEndTime" startTime="1700000000000" duration="33.333333"></measurement>`)
	assert.Contains(t, out, `<resourceMeasurement name="http://cdn.example.com/app.js" startTime="12.5" duration="40" initiatorType="script" fetchStart="12.5" requestStart="20" responseEnd="52.5"></resourceMeasurement>`)
	assert.Contains(t, out, "<statistic>\n      <name>pageLoadTime</name>\n      <min>100</min>")
	assert.True(t, strings.Index(out, "<key>browserName</key>") < strings.Index(out, "<key>url</key>"), "page data keys should be sorted")

	var decoded struct {
		Runs []struct{} `xml:"runs>run"`
	}
	require.NoError(t, xml.Unmarshal(data, &decoded))
	assert.Len(t, decoded.Runs, 3)
}

func TestSerialize_XMLWithoutRuns(t *testing.T) {
	data, err := Serialize(testSession(t), Options{Format: XML})
	require.NoError(t, err)

	assert.NotContains(t, string(data), "<runs>")
	assert.NotContains(t, string(data), "version=")
	assert.Contains(t, string(data), "<timingSession><pageData>")
}

func zeroResourceSession(t *testing.T) *timings.Session {
	c := timings.NewCollected(nil)
	c.AddResourceMeasurement(timings.ResourceMeasurement{
		Measurement:   timings.Measurement{Mark: timings.Mark{Name: "http://cdn.example.com/font.woff"}},
		InitiatorType: "css",
	})
	b := timings.NewRunBuilder()
	require.NoError(t, b.Merge(c))
	run, err := b.Build()
	require.NoError(t, err)

	s := timings.NewSession()
	s.AddRun(run)
	return s
}

func TestSerialize_ZeroResourceTimings(t *testing.T) {
	data, err := Serialize(zeroResourceSession(t), Options{Format: JSON, IncludeRuns: true})
	require.NoError(t, err)
	var got struct {
		Runs []struct {
			ResourceMeasurements []map[string]interface{} `json:"resourceMeasurements"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got.Runs, 1)
	require.Len(t, got.Runs[0].ResourceMeasurements, 1)
	resource := got.Runs[0].ResourceMeasurements[0]
	assert.Equal(t, 0.0, resource["fetchStart"])
	assert.Equal(t, 0.0, resource["responseEnd"])
	assert.NotContains(t, resource, "requestStart")

	data, err = Serialize(zeroResourceSession(t), Options{Format: XML, IncludeRuns: true})
	require.NoError(t, err)
	assert.Contains(t, string(data), `<resourceMeasurement name="http://cdn.example.com/font.woff" startTime="0" duration="0" initiatorType="css" fetchStart="0" responseEnd="0"></resourceMeasurement>`)
}

func TestSerialize_XMLEmptySession(t *testing.T) {
	data, err := Serialize(timings.NewSession(), Options{Format: XML})
	require.NoError(t, err)

	assert.Contains(t, string(data), "<timingSession><pageData></pageData><statistics></statistics></timingSession>")
}

func TestSerialize_UnknownFormat(t *testing.T) {
	_, err := Serialize(testSession(t), Options{Format: "yaml"})
	assert.Error(t, err)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, testSession(t), Options{Format: JSON}))
	assert.True(t, json.Valid(buf.Bytes()))

	assert.Error(t, Write(failingWriter{}, testSession(t), Options{Format: JSON}))
}

func TestReadBaseline(t *testing.T) {
	data, err := Serialize(testSession(t), Options{Format: JSON, IncludeRuns: true})
	require.NoError(t, err)

	durations, err := ReadBaseline(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 200, 300}, durations["pageLoadTime"])
	assert.Len(t, durations["backEndTime"], 3)
}

func TestReadBaseline_Errors(t *testing.T) {
	data, err := Serialize(testSession(t), Options{Format: JSON})
	require.NoError(t, err)

	_, err = ReadBaseline(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrNoRuns)

	_, err = ReadBaseline(strings.NewReader("<timingSession/>"))
	assert.Error(t, err)
}

func TestWritePlot(t *testing.T) {
	tests := []struct {
		format     string
		wantPrefix string
	}{
		{format: "png", wantPrefix: "\x89PNG"},
		{format: "svg", wantPrefix: "<?xml"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WritePlot(&buf, testSession(t), tt.format))
			assert.True(t, strings.HasPrefix(buf.String(), tt.wantPrefix))
		})
	}
}

func TestPlotFormatFromPath(t *testing.T) {
	f, err := PlotFormatFromPath("out/metrics.SVG")
	require.NoError(t, err)
	assert.Equal(t, "svg", f)

	_, err = PlotFormatFromPath("out/metrics.gif")
	assert.Error(t, err)
}
