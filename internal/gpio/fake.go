package gpio

import "sync"

// FakePins is a test double that returns scripted GPIO samples.
// Safe for use from a loop goroutine while the test inspects it.
type FakePins struct {
	mu sync.Mutex

	// Samples contains scripted readings.
	// Each call to ReadDigital() consumes the next sample.
	Samples []Sample

	// index tracks the next sample to consume
	index int

	// current is the most recently consumed sample; Millis reports its time
	current Sample

	// reads counts ReadDigital calls
	reads int

	// Configured records every ConfigureInput call in order
	Configured []int

	// Errs, if set for a pin, is returned by Err
	Errs map[int]error

	// Closed tracks if Close was called
	Closed bool
}

// Sample is a single raw reading with the clock value that goes with it.
type Sample struct {
	Level bool   // true = HIGH
	Ms    uint32 // Millis() after this sample is read
}

// NewFakePins creates a FakePins with the given samples.
func NewFakePins(samples []Sample) *FakePins {
	return &FakePins{Samples: samples}
}

// ConfigureInput records the pin.
func (f *FakePins) ConfigureInput(pin int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Configured = append(f.Configured, pin)
}

// ReadDigital returns the next scripted level, whatever the pin.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakePins) ReadDigital(pin int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	if len(f.Samples) == 0 {
		return false
	}

	f.current = f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return f.current.Level
}

// Millis returns the time of the most recently read sample.
func (f *FakePins) Millis() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current.Ms
}

// Err returns the scripted configuration error for pin.
func (f *FakePins) Err(pin int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Errs[pin]
}

// Close marks the pins as closed.
func (f *FakePins) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Reads returns how many times ReadDigital has been called.
func (f *FakePins) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// Reset rewinds to the first sample.
func (f *FakePins) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = 0
	f.reads = 0
	f.current = Sample{}
	f.Configured = nil
	f.Closed = false
}

// Track builds a sample script: each step holds a level for n samples,
// stepMs apart, starting at startMs.
func Track(startMs, stepMs uint32, steps ...Step) []Sample {
	var out []Sample
	ms := startMs
	for _, s := range steps {
		for i := 0; i < s.N; i++ {
			out = append(out, Sample{Level: s.Level, Ms: ms})
			ms += stepMs
		}
	}
	return out
}

// Step is a run of identical levels used by Track.
type Step struct {
	Level bool
	N     int
}
