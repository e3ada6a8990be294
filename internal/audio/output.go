package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/hajimehoshi/oto/v2"
)

const (
	defaultSampleRate = 44100
	defaultChannels   = 2
	bytesPerSample    = 2 // signed 16-bit little-endian
	defaultBufferMs   = 100
)

// bufferBytes returns how many PCM bytes cover ms milliseconds
func bufferBytes(sampleRate, channels, ms int) int {
	return sampleRate * ms / 1000 * channels * bytesPerSample
}

// scaleS16 multiplies every 16-bit sample in pcm by gain in place
func scaleS16(pcm []byte, gain float64) {
	if gain >= 1 {
		return
	}
	for i := 0; i+1 < len(pcm); i += bytesPerSample {
		s := int16(binary.LittleEndian.Uint16(pcm[i:]))
		binary.LittleEndian.PutUint16(pcm[i:], uint16(int16(float64(s)*gain)))
	}
}

// pcmQueue sits between the decoder pump and the device. The pump writes
// into it and blocks once limit bytes are queued; the device drains it and
// gets silence while it is empty so the stream never underruns into EOF.
type pcmQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	data   bytes.Buffer
	limit  int
	gain   float64
	held   bool // device reads wait while held
	closed bool
}

func newPCMQueue(limit int) *pcmQueue {
	q := &pcmQueue{limit: limit, gain: 1}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *pcmQueue) read(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.held && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return 0, io.EOF
	}

	if q.data.Len() == 0 {
		clear(p)
		return len(p), nil
	}

	n, _ := q.data.Read(p)
	scaleS16(p[:n], q.gain)
	q.cond.Broadcast()
	return n, nil
}

func (q *pcmQueue) write(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.data.Len() >= q.limit && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return 0, io.ErrClosedPipe
	}
	return q.data.Write(p)
}

// drop discards queued audio and wakes blocked writers
func (q *pcmQueue) drop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.data.Reset()
	q.cond.Broadcast()
}

func (q *pcmQueue) hold(held bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.held = held
	q.cond.Broadcast()
}

func (q *pcmQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

func (q *pcmQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.data.Len()
}

func (q *pcmQueue) setGain(g float64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.gain = min(max(g, 0), 1)
}

func (q *pcmQueue) getGain() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.gain
}

// OtoOutput plays 16-bit interleaved PCM on the system device through oto.
// Writes block while bufferMs of audio is already queued, which paces the
// decoder to real time.
type OtoOutput struct {
	sampleRate int
	channels   int
	queue      *pcmQueue

	devMu   sync.Mutex
	context *oto.Context
	player  oto.Player
	paused  bool
}

// NewOtoOutput opens the device with the default format
func NewOtoOutput() (*OtoOutput, error) {
	return NewOtoOutputWithConfig(defaultSampleRate, defaultChannels, defaultBufferMs)
}

// NewOtoOutputWithConfig opens the device. Non-positive arguments take the defaults.
func NewOtoOutputWithConfig(sampleRate, channels, bufferMs int) (*OtoOutput, error) {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	if channels <= 0 {
		channels = defaultChannels
	}
	if bufferMs <= 0 {
		bufferMs = defaultBufferMs
	}

	ctx, ready, err := oto.NewContext(sampleRate, channels, bytesPerSample)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	<-ready

	o := newOutput(sampleRate, channels, bufferMs)
	o.context = ctx
	o.player = ctx.NewPlayer(o)
	return o, nil
}

// newOutput builds an output with no device attached
func newOutput(sampleRate, channels, bufferMs int) *OtoOutput {
	return &OtoOutput{
		sampleRate: sampleRate,
		channels:   channels,
		queue:      newPCMQueue(bufferBytes(sampleRate, channels, bufferMs)),
	}
}

// Read hands queued PCM to the device
func (o *OtoOutput) Read(p []byte) (int, error) {
	return o.queue.read(p)
}

// Write queues PCM for playback and starts the device unless paused
func (o *OtoOutput) Write(p []byte) (int, error) {
	n, err := o.queue.write(p)
	if err != nil {
		return n, err
	}

	o.devMu.Lock()
	if o.player != nil && !o.paused && !o.player.IsPlaying() {
		o.player.Play()
	}
	o.devMu.Unlock()
	return n, nil
}

// SetVolume sets the gain, clamped to 0..1
func (o *OtoOutput) SetVolume(v float64) {
	o.queue.setGain(v)
}

func (o *OtoOutput) GetVolume() float64 {
	return o.queue.getGain()
}

// Buffered reports queued bytes the device has not taken yet
func (o *OtoOutput) Buffered() int {
	return o.queue.len()
}

// Flush drops queued audio; used on seek
func (o *OtoOutput) Flush() {
	o.queue.drop()
}

func (o *OtoOutput) Pause() {
	o.devMu.Lock()
	defer o.devMu.Unlock()

	o.paused = true
	o.queue.hold(true)
	if o.player != nil && o.player.IsPlaying() {
		o.player.Pause()
	}
}

func (o *OtoOutput) Resume() {
	o.devMu.Lock()
	defer o.devMu.Unlock()

	o.paused = false
	o.queue.hold(false)
	if o.player != nil && !o.player.IsPlaying() {
		o.player.Play()
	}
}

// Stop silences the device and empties the queue, releasing a blocked writer
func (o *OtoOutput) Stop() {
	o.devMu.Lock()
	defer o.devMu.Unlock()

	o.paused = false
	o.queue.hold(false)
	if o.player != nil {
		o.player.Pause()
	}
	o.queue.drop()
}

func (o *OtoOutput) IsPlaying() bool {
	o.devMu.Lock()
	defer o.devMu.Unlock()
	return o.player != nil && o.player.IsPlaying()
}

// Close ends the stream. Pending reads get EOF and writes fail.
func (o *OtoOutput) Close() error {
	o.queue.close()

	o.devMu.Lock()
	defer o.devMu.Unlock()
	if o.player == nil {
		return nil
	}
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("failed to close audio player: %w", err)
	}
	return nil
}

func (o *OtoOutput) SampleRate() int { return o.sampleRate }
func (o *OtoOutput) Channels() int   { return o.channels }

var _ Output = (*OtoOutput)(nil)
