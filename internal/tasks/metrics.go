package tasks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	routineTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gestio_routine_tasks_total",
		Help: "Tasks considered by the weekly routine generator by area and result",
	}, []string{"area", "result"})

	salesRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gestio_pos_sales_rows_total",
		Help: "POS sales rows processed by import result",
	}, []string{"result"})

	autoLinks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gestio_pos_auto_links_total",
		Help: "POS products linked to a dish by name matching",
	})
)
