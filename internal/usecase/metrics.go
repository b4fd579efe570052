package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	productsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "products_created_total",
		Help: "The total number of accepted product creations",
	}, []string{"mode"})
	transfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transfers_total",
		Help: "The total number of transfer workflows by outcome",
	}, []string{"outcome"})
	uncompensatedWithdrawals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transfer_uncompensated_withdrawals_total",
		Help: "Transfers that failed after their withdrawal event was published",
	})
)
