package notify

import (
	"AgoraNotify/logger"
)

// HandlerFunc processes one classified frame.
type HandlerFunc func(f *Frame) error

// Dispatcher routes inbound frames by type. Frames arrive strictly in receipt
// order on the single connection; no reordering or batching happens here.
type Dispatcher struct {
	handlers map[string]HandlerFunc
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

func (d *Dispatcher) Register(frameType string, h HandlerFunc) {
	d.handlers[frameType] = h
}

// Dispatch classifies and routes one raw frame. Malformed frames and unknown
// types are logged and dropped; nothing propagates to the connection manager.
func (d *Dispatcher) Dispatch(raw []byte) {
	f, err := ParseFrame(raw)
	if err != nil {
		sample := raw
		if len(sample) > 256 {
			sample = sample[:256]
		}
		logger.Warnf("[dispatch] dropping malformed frame err=%v sample=%q", err, sample)
		return
	}
	h, ok := d.handlers[f.Type]
	if !ok {
		logger.Debugf("[dispatch] no handler for type=%s", f.Type)
		return
	}
	if err := h(f); err != nil {
		logger.Warnf("[dispatch] handler type=%s err=%v", f.Type, err)
	}
}
