package core

import (
	"github.com/spaghettifunk/ember/engine/containers"
)

type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01
	// Keyboard key pressed. Key holds the key code.
	EVENT_CODE_KEY_PRESSED SystemEventCode = 0x02
	// Keyboard key released. Key holds the key code.
	EVENT_CODE_KEY_RELEASED SystemEventCode = 0x03
	// Mouse button pressed. Button holds the button.
	EVENT_CODE_BUTTON_PRESSED SystemEventCode = 0x04
	// Mouse button released. Button holds the button.
	EVENT_CODE_BUTTON_RELEASED SystemEventCode = 0x05
	// Mouse moved. X and Y hold the cursor position.
	EVENT_CODE_MOUSE_MOVED SystemEventCode = 0x06
	// Mouse wheel. X and Y hold the scroll offsets.
	EVENT_CODE_MOUSE_WHEEL SystemEventCode = 0x07
	// Framebuffer resized. X and Y hold the new size.
	EVENT_CODE_RESIZED SystemEventCode = 0x08
)

type InputEvent struct {
	Code   SystemEventCode
	Key    KeyCode
	Button Button
	X      float64
	Y      float64
}

// InputQueue buffers discrete input events between the platform callbacks and
// the frame loop. When full the oldest event is dropped.
type InputQueue struct {
	ring    *containers.RingQueue[InputEvent]
	dropped int
}

func NewInputQueue(size int) *InputQueue {
	return &InputQueue{ring: containers.NewRingQueue[InputEvent](size)}
}

func (q *InputQueue) Push(ev InputEvent) {
	if q.ring.IsFull() {
		_, _ = q.ring.Dequeue()
		q.dropped++
	}
	_ = q.ring.Enqueue(ev)
}

// Poll returns the oldest pending event.
func (q *InputQueue) Poll() (InputEvent, bool) {
	ev, err := q.ring.Dequeue()
	if err != nil {
		return InputEvent{}, false
	}
	return ev, true
}

// Drain removes every pending event and returns them in arrival order.
func (q *InputQueue) Drain() []InputEvent {
	out := make([]InputEvent, 0, q.ring.Len())
	for {
		ev, ok := q.Poll()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

// Dropped reports how many events were discarded because the queue was full,
// and resets the counter.
func (q *InputQueue) Dropped() int {
	n := q.dropped
	q.dropped = 0
	return n
}

func (q *InputQueue) Len() int {
	return q.ring.Len()
}
