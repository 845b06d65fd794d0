package mqtt

// pendingMsg is a serialized message waiting for the broker.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox is a bounded FIFO of messages published while the broker was
// unreachable. When full, the oldest message is dropped.
// Not safe for concurrent use; RealPublisher guards it with its mutex.
type outbox struct {
	slots   []pendingMsg
	first   int
	size    int
	dropped uint64
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{slots: make([]pendingMsg, capacity)}
}

// add queues msg and reports whether an older message was dropped to make
// room for it.
func (o *outbox) add(msg pendingMsg) bool {
	if o.size == len(o.slots) {
		o.slots[o.first] = msg
		o.first = (o.first + 1) % len(o.slots)
		o.dropped++
		return true
	}
	o.slots[(o.first+o.size)%len(o.slots)] = msg
	o.size++
	return false
}

// peek returns the oldest queued message.
func (o *outbox) peek() (pendingMsg, bool) {
	if o.size == 0 {
		return pendingMsg{}, false
	}
	return o.slots[o.first], true
}

// pop removes the oldest queued message.
func (o *outbox) pop() {
	if o.size == 0 {
		return
	}
	o.slots[o.first] = pendingMsg{}
	o.first = (o.first + 1) % len(o.slots)
	o.size--
}

func (o *outbox) len() int {
	return o.size
}
