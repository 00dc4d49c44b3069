package timings

import (
	"errors"
	"sort"
)

// Collected is the timing data a single collector observed during one page
// load. Mark lookups fall back to the marks observed by earlier collectors so
// intervals can span marks from several collectors.
type Collected struct {
	observed             Marks
	marks                markSet
	measurements         []Measurement
	resourceMeasurements []ResourceMeasurement
}

// NewCollected returns an empty Collected on top of observed, which may be nil.
func NewCollected(observed Marks) *Collected {
	return &Collected{
		observed: observed,
		marks:    newMarkSet(),
	}
}

func (c *Collected) AddMark(m Mark) {
	c.marks.add(m)
}

func (c *Collected) AddMeasurement(m Measurement) {
	c.measurements = append(c.measurements, m)
}

func (c *Collected) AddResourceMeasurement(r ResourceMeasurement) {
	c.resourceMeasurements = append(c.resourceMeasurements, r)
}

// Mark returns the mark added to c under name, or else the observed one.
func (c *Collected) Mark(name string) (Mark, bool) {
	if m, ok := c.marks.lookup(name); ok {
		return m, true
	}
	if c.observed == nil {
		return Mark{}, false
	}
	return c.observed.Mark(name)
}

// Marks returns only the marks added to c, in insertion order.
func (c *Collected) Marks() []Mark {
	return c.marks.list()
}

func (c *Collected) Measurements() []Measurement {
	measurements := make([]Measurement, len(c.measurements))
	copy(measurements, c.measurements)
	return measurements
}

func (c *Collected) ResourceMeasurements() []ResourceMeasurement {
	resources := make([]ResourceMeasurement, len(c.resourceMeasurements))
	copy(resources, c.resourceMeasurements)
	return resources
}

// IsEmpty reports whether nothing was added to c.
func (c *Collected) IsEmpty() bool {
	return len(c.marks.order) == 0 && len(c.measurements) == 0 && len(c.resourceMeasurements) == 0
}

var ErrRunBuilt = errors.New("run already built")

// RunBuilder accumulates the data of every collector for one page load.
// Build freezes the data into a Run; the builder cannot be used afterwards.
type RunBuilder struct {
	marks                markSet
	measurements         []Measurement
	resourceMeasurements []ResourceMeasurement
	built                bool
}

func NewRunBuilder() *RunBuilder {
	return &RunBuilder{marks: newMarkSet()}
}

func (b *RunBuilder) Mark(name string) (Mark, bool) {
	return b.marks.lookup(name)
}

// Merge adds the data of c. Marks overwrite earlier marks of the same name.
// Merging nil or an empty Collected only checks that the run is not built.
func (b *RunBuilder) Merge(c *Collected) error {
	if b.built {
		return ErrRunBuilt
	}
	if c == nil || c.IsEmpty() {
		return nil
	}
	for _, m := range c.Marks() {
		b.marks.add(m)
	}
	b.measurements = append(b.measurements, c.measurements...)
	b.resourceMeasurements = append(b.resourceMeasurements, c.resourceMeasurements...)
	return nil
}

func (b *RunBuilder) Build() (*Run, error) {
	if b.built {
		return nil, ErrRunBuilt
	}
	b.built = true

	marks := b.marks.list()
	sort.SliceStable(marks, func(i, j int) bool {
		if marks[i].StartTime == marks[j].StartTime {
			return marks[i].Name < marks[j].Name
		}
		return marks[i].StartTime < marks[j].StartTime
	})

	measurements := make([]Measurement, len(b.measurements))
	copy(measurements, b.measurements)
	sort.SliceStable(measurements, func(i, j int) bool {
		return measurements[i].EndTime() < measurements[j].EndTime()
	})

	resources := make([]ResourceMeasurement, len(b.resourceMeasurements))
	copy(resources, b.resourceMeasurements)

	byName := make(map[string]Mark, len(marks))
	for _, m := range marks {
		byName[m.Name] = m
	}

	return &Run{
		byName:               byName,
		marks:                marks,
		measurements:         measurements,
		resourceMeasurements: resources,
	}, nil
}

// Run is the timing data of one page load. A Run is immutable; accessors
// return copies.
type Run struct {
	byName               map[string]Mark
	marks                []Mark
	measurements         []Measurement
	resourceMeasurements []ResourceMeasurement
}

func (r *Run) Mark(name string) (Mark, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// Marks returns the marks ordered by start time.
func (r *Run) Marks() []Mark {
	marks := make([]Mark, len(r.marks))
	copy(marks, r.marks)
	return marks
}

// Measurements returns the measurements ordered by end time.
func (r *Run) Measurements() []Measurement {
	measurements := make([]Measurement, len(r.measurements))
	copy(measurements, r.measurements)
	return measurements
}

func (r *Run) ResourceMeasurements() []ResourceMeasurement {
	resources := make([]ResourceMeasurement, len(r.resourceMeasurements))
	copy(resources, r.resourceMeasurements)
	return resources
}
