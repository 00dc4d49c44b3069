package timings

// Interval names the measurement spanning two marks.
type Interval struct {
	Name      string
	StartMark string
	EndMark   string
}

// Measure returns the measurement from StartMark to EndMark, or false if
// either mark is missing.
func (i Interval) Measure(marks Marks) (Measurement, bool) {
	start, ok := marks.Mark(i.StartMark)
	if !ok {
		return Measurement{}, false
	}
	end, ok := marks.Mark(i.EndMark)
	if !ok {
		return Measurement{}, false
	}

	return Measurement{
		Mark:     Mark{Name: i.Name, StartTime: start.StartTime},
		Duration: end.StartTime - start.StartTime,
	}, true
}

// DeriveIntervals measures every interval whose marks are both present,
// in table order.
func DeriveIntervals(marks Marks, intervals ...Interval) []Measurement {
	var measurements []Measurement
	for _, interval := range intervals {
		if m, ok := interval.Measure(marks); ok {
			measurements = append(measurements, m)
		}
	}
	return measurements
}
