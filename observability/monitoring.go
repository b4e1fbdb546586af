package observability

import (
	"runtime"
	"sync/atomic"
)

// Stats is the point-in-time snapshot served on the debug endpoint and
// logged by the reporter worker.
type Stats struct {
	ActiveConnections int64  `json:"active_connections"`
	MessagesStored    uint64 `json:"messages_stored"`
	Deliveries        uint64 `json:"deliveries"`
	DroppedDeliveries uint64 `json:"dropped_deliveries"`
	AllocMemMb        uint64 `json:"alloc_mem_mb"`
	NumGC             uint32 `json:"num_gc"`
}

// MonitoringManager aggregates real-time gateway telemetry.
// All counters are atomic: increments happen on delivery hot paths and must
// never contend.
type MonitoringManager struct {
	activeConnections atomic.Int64
	messagesStored    atomic.Uint64
	deliveries        atomic.Uint64
	droppedDeliveries atomic.Uint64
}

func NewMonitoringManager() *MonitoringManager {
	return &MonitoringManager{}
}

func (m *MonitoringManager) ConnectionOpened() { m.activeConnections.Add(1) }
func (m *MonitoringManager) ConnectionClosed() { m.activeConnections.Add(-1) }
func (m *MonitoringManager) MessageStored()    { m.messagesStored.Add(1) }
func (m *MonitoringManager) MessageDelivered() { m.deliveries.Add(1) }
func (m *MonitoringManager) DeliveryDropped()  { m.droppedDeliveries.Add(1) }

// Snapshot returns the current counters plus process memory figures.
func (m *MonitoringManager) Snapshot() Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return Stats{
		ActiveConnections: m.activeConnections.Load(),
		MessagesStored:    m.messagesStored.Load(),
		Deliveries:        m.deliveries.Load(),
		DroppedDeliveries: m.droppedDeliveries.Load(),
		AllocMemMb:        mem.Alloc / 1024 / 1024,
		NumGC:             mem.NumGC,
	}
}
