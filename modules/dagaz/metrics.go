package dagaz

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	queryLabel = "query"
	hitLabel   = "hit"
)

var (
	dagazQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dagaz_queries",
		Help: "The number of ray queries run against levels.",
	}, []string{
		queryLabel,
		hitLabel,
	})

	dagazLineDrawCells = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dagaz_line_draw_cells",
		Help:    "The number of cells visited by line draws.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	dagazCellUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dagaz_cell_updates",
		Help: "The number of cells added or removed by participants.",
	})

	dagazWalkSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dagaz_walk_steps",
		Help:    "The number of cells stepped through by chunk walks.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
)

func instrumentQuery(query string, hit bool) {
	dagazQueries.
		With(prometheus.Labels{
			queryLabel: query,
			hitLabel:   strconv.FormatBool(hit),
		}).
		Inc()
}

func instrumentLineDraw(cells int) {
	dagazLineDrawCells.Observe(float64(cells))
}

func instrumentWalkSteps(steps int) {
	dagazWalkSteps.Observe(float64(steps))
}

func instrumentCellUpdates(count int) {
	dagazCellUpdates.Add(float64(count))
}
