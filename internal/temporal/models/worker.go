package models

import (
	"time"

	"go.temporal.io/sdk/worker"
)

// DefaultWorkerOptions returns the options every billing worker starts with
func DefaultWorkerOptions() worker.Options {
	return worker.Options{
		MaxConcurrentActivityExecutionSize:     4,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
		WorkerStopTimeout:                      30 * time.Second,
		EnableSessionWorker:                    false,
	}
}
