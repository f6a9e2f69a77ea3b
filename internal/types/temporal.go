package types

import (
	"fmt"
	"strings"

	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/samber/lo"
)

// TemporalTaskQueue represents a logical grouping of workflows and activities
type TemporalTaskQueue string

const (
	TemporalTaskQueueBilling TemporalTaskQueue = "billing"
	TemporalTaskQueueInvoice TemporalTaskQueue = "invoice"
)

func (tq TemporalTaskQueue) String() string {
	return string(tq)
}

func (tq TemporalTaskQueue) Validate() error {
	allowedQueues := []TemporalTaskQueue{
		TemporalTaskQueueBilling,
		TemporalTaskQueueInvoice,
	}
	if lo.Contains(allowedQueues, tq) {
		return nil
	}
	return ierr.NewError("invalid task queue").
		WithHint(fmt.Sprintf("Task queue must be one of: %s", strings.Join(lo.Map(allowedQueues, func(tq TemporalTaskQueue, _ int) string { return string(tq) }), ", "))).
		Mark(ierr.ErrValidation)
}

// TemporalWorkflowType represents the type of workflow
type TemporalWorkflowType string

const (
	TemporalBillingRunWorkflow   TemporalWorkflowType = "BillingRunWorkflow"
	TemporalOverdueSweepWorkflow TemporalWorkflowType = "OverdueSweepWorkflow"
)

func (w TemporalWorkflowType) String() string {
	return string(w)
}

func (w TemporalWorkflowType) Validate() error {
	allowedWorkflows := []TemporalWorkflowType{
		TemporalBillingRunWorkflow,
		TemporalOverdueSweepWorkflow,
	}
	if lo.Contains(allowedWorkflows, w) {
		return nil
	}

	return ierr.NewError("invalid workflow type").
		WithHint(fmt.Sprintf("Workflow type must be one of: %s", strings.Join(lo.Map(allowedWorkflows, func(w TemporalWorkflowType, _ int) string { return string(w) }), ", "))).
		Mark(ierr.ErrValidation)
}

// TaskQueue returns the logical task queue for the workflow
func (w TemporalWorkflowType) TaskQueue() TemporalTaskQueue {
	switch w {
	case TemporalOverdueSweepWorkflow:
		return TemporalTaskQueueInvoice
	default:
		return TemporalTaskQueueBilling
	}
}

func (w TemporalWorkflowType) TaskQueueName() string {
	return w.TaskQueue().String()
}

// WorkflowID returns the workflow ID for the workflow with given identifier
func (w TemporalWorkflowType) WorkflowID(identifier string) string {
	return string(w) + "-" + identifier
}

// GetWorkflowsForTaskQueue returns all workflows that belong to a specific task queue
func GetWorkflowsForTaskQueue(taskQueue TemporalTaskQueue) []TemporalWorkflowType {
	switch taskQueue {
	case TemporalTaskQueueBilling:
		return []TemporalWorkflowType{TemporalBillingRunWorkflow}
	case TemporalTaskQueueInvoice:
		return []TemporalWorkflowType{TemporalOverdueSweepWorkflow}
	default:
		return []TemporalWorkflowType{}
	}
}

// GetAllTaskQueues returns every task queue a worker should poll
func GetAllTaskQueues() []TemporalTaskQueue {
	return []TemporalTaskQueue{
		TemporalTaskQueueBilling,
		TemporalTaskQueueInvoice,
	}
}
