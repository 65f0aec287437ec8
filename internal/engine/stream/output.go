package stream

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Output is the audio device players render to.
type Output interface {
	// Init prepares the device. The first call fixes the sample rate; later
	// calls do nothing.
	Init(rate beep.SampleRate) error
	SampleRate() beep.SampleRate
	Play(s beep.Streamer)
	// Lock excludes the device's mixing goroutine.
	Lock()
	Unlock()
}

type speakerOutput struct {
	mu          sync.Mutex
	initialized bool
	rate        beep.SampleRate
}

var defaultSpeaker = &speakerOutput{}

// Speaker returns the process-wide speaker output.
func Speaker() Output {
	return defaultSpeaker
}

func (o *speakerOutput) Init(rate beep.SampleRate) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.initialized {
		return nil
	}
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return err
	}
	o.rate = rate
	o.initialized = true
	return nil
}

func (o *speakerOutput) SampleRate() beep.SampleRate {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rate
}

func (o *speakerOutput) Play(s beep.Streamer) { speaker.Play(s) }

func (o *speakerOutput) Lock() { speaker.Lock() }

func (o *speakerOutput) Unlock() { speaker.Unlock() }
