package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// LockScope represents the scope of a database advisory lock
type LockScope string

const (
	// LockScopeReconciliation guards the single reconciliation per (service, period)
	LockScopeReconciliation LockScope = "reconciliation"

	// LockScopeBillingPeriod guards a whole period's billing write unit
	LockScopeBillingPeriod LockScope = "billing_period"

	// LockScopeInvoice serialises every write to the invoice of one (household, period):
	// payments, regeneration and the overdue sweep
	LockScopeInvoice LockScope = "invoice"
)

const defaultLockTimeout = 30 * time.Second

// LockRequest describes an advisory lock to take inside a transaction.
// A nil Timeout means the default; zero or negative means fail fast.
type LockRequest struct {
	Key     string
	Timeout *time.Duration
}

func (r LockRequest) GetTimeout() time.Duration {
	if r.Timeout == nil {
		return defaultLockTimeout
	}
	return *r.Timeout
}

// GenerateLockKey builds a deterministic key "scope:k1=v1:k2=v2" with params sorted by key.
// Postgres hashes it with hashtext().
func GenerateLockKey(scope LockScope, params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, params[k]))
	}
	return b.String()
}

// TableName represents a database table name
type TableName string

const (
	TableNameHouseholds      TableName = "households"
	TableNameUtilityServices TableName = "utility_services"
	TableNameMainMeters      TableName = "main_meters"
	TableNameHouseholdMeters TableName = "household_meters"
	TableNameBillingPeriods  TableName = "billing_periods"
	TableNameMeterReadings   TableName = "meter_readings"
	TableNameUtilityPricing  TableName = "utility_pricing"
	TableNameReconciliations TableName = "reconciliations"
	TableNameUtilityBillings TableName = "utility_billings"
	TableNameInvoices        TableName = "invoices"
	TableNamePayments        TableName = "payments"
	TableNameSharedCosts     TableName = "shared_costs"
)
