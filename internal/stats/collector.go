// Package stats emits operational counters to an external collector.
// Nothing in the core reads them back.
package stats

// Collector receives fire-and-forget counter events.
type Collector interface {
	ConnOpened()
	ConnClosed()
	Message(kind string)
	RelayMiss()
	FrameDropped()
	RoomCreated()
	RoomPurged()
}

// Nop discards every event.
type Nop struct{}

func (Nop) ConnOpened()    {}
func (Nop) ConnClosed()    {}
func (Nop) Message(string) {}
func (Nop) RelayMiss()     {}
func (Nop) FrameDropped()  {}
func (Nop) RoomCreated()   {}
func (Nop) RoomPurged()    {}
