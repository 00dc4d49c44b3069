package logging

import (
	"log"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kcz17/pagetime/stats"
	"github.com/kcz17/pagetime/timings"
)

// influxDBLogger logs the output to an external InfluxDB instance. Every point
// carries the given tags, e.g. the tested URL and the tool version.
type influxDBLogger struct {
	client      influxdb2.Client
	asyncWriter api.WriteAPI
	tags        map[string]string
}

func NewInfluxDBLogger(baseURL, authToken, org, bucket string, tags map[string]string) *influxDBLogger {
	options := influxdb2.DefaultOptions()
	options.WriteOptions().SetBatchSize(1000)
	options.WriteOptions().SetFlushInterval(250)

	client := influxdb2.NewClientWithOptions(baseURL, authToken, options)
	writeAPI := client.WriteAPI(org, bucket)

	// Create a goroutine for reading and logging async write errors.
	errorsCh := writeAPI.Errors()
	go func() {
		for err := range errorsCh {
			log.Printf("influxdb2 logging async write error: %v\n", err)
		}
	}()

	return &influxDBLogger{
		client:      client,
		asyncWriter: writeAPI,
		tags:        tags,
	}
}

func (l *influxDBLogger) point(measurement string, timestamp time.Time) *write.Point {
	p := influxdb2.NewPointWithMeasurement(measurement).SetTime(timestamp)
	for k, v := range l.tags {
		p.AddTag(k, v)
	}
	return p
}

func (*influxDBLogger) LogStatus(string, ...interface{}) {
	// Progress messages are not metrics.
}

func (l *influxDBLogger) LogRun(iteration int, run *timings.Run) {
	measurements := run.Measurements()
	if len(measurements) == 0 {
		return
	}
	p := l.point("pagetime_run", time.Now()).
		AddField("iteration", iteration)
	for _, m := range measurements {
		p.AddField(m.Name, m.Duration)
	}
	l.asyncWriter.WritePoint(p)
}

func (l *influxDBLogger) LogStatistics(statistics []stats.Statistic) {
	timestamp := time.Now()
	for _, s := range statistics {
		p := l.point("pagetime_statistic", timestamp).
			AddTag("metric", s.Name).
			AddField("min", s.Min).
			AddField("avg", s.Avg).
			AddField("median", s.Median).
			AddField("p60", s.P60).
			AddField("p70", s.P70).
			AddField("p80", s.P80).
			AddField("p90", s.P90).
			AddField("max", s.Max)
		l.asyncWriter.WritePoint(p)
	}
}

func (l *influxDBLogger) LogIterationTimes(count int, p50 float64, p95 float64, max float64) {
	p := l.point("pagetime_iteration_time", time.Now()).
		AddField("count", count).
		AddField("p50", p50).
		AddField("p95", p95).
		AddField("max", max)
	l.asyncWriter.WritePoint(p)
}

func (l *influxDBLogger) LogComparison(c stats.Comparison) {
	p := l.point("pagetime_comparison", time.Now()).
		AddTag("metric", c.Name).
		AddField("baseline_median", c.BaselineMedian).
		AddField("current_median", c.CurrentMedian).
		AddField("d", c.Statistic).
		AddField("critical_value", c.CriticalValue).
		AddField("differs", c.Differs)
	l.asyncWriter.WritePoint(p)
}

func (l *influxDBLogger) Close() {
	l.asyncWriter.Flush()
	l.client.Close()
}
