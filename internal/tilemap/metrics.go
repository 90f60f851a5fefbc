package tilemap

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics Prometheus-метрики карты тайлов.
// Нулевой *Metrics допустим: все методы превращаются в no-op.
type Metrics struct {
	created   prometheus.Counter
	destroyed prometheus.Counter
	edits     *prometheus.CounterVec
	tiles     prometheus.Gauge
}

// NewMetrics создаёт метрики и регистрирует их в reg (если reg != nil)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tilemap",
			Name:      "instances_created_total",
			Help:      "Общее число созданных визуальных экземпляров тайлов.",
		}),
		destroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tilemap",
			Name:      "instances_destroyed_total",
			Help:      "Общее число уничтоженных визуальных экземпляров тайлов.",
		}),
		edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tilemap",
			Name:      "region_edits_total",
			Help:      "Пакетные правки карты по типу операции.",
		}, []string{"op"}),
		tiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tilemap",
			Name:      "tiles",
			Help:      "Текущее число тайлов в хранилище.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.created, m.destroyed, m.edits, m.tiles)
	}
	return m
}

func (m *Metrics) instanceCreated() {
	if m != nil {
		m.created.Inc()
	}
}

func (m *Metrics) instanceDestroyed() {
	if m != nil {
		m.destroyed.Inc()
	}
}

func (m *Metrics) edit(op string) {
	if m != nil {
		m.edits.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) setTiles(n int) {
	if m != nil {
		m.tiles.Set(float64(n))
	}
}
