package types

// HouseholdFilter filters households
type HouseholdFilter struct {
	*QueryFilter
	HouseholdIDs     []string         `json:"household_ids,omitempty" form:"household_ids"`
	HouseholdNumbers []string         `json:"household_numbers,omitempty" form:"household_numbers"`
	HouseholdStatus  *HouseholdStatus `json:"household_status,omitempty" form:"household_status"`
}

func NewHouseholdFilter() *HouseholdFilter {
	return &HouseholdFilter{QueryFilter: NewDefaultQueryFilter()}
}

// NewActiveHouseholdFilter lists every active household without pagination
func NewActiveHouseholdFilter() *HouseholdFilter {
	active := HouseholdStatusActive
	return &HouseholdFilter{QueryFilter: NewNoLimitQueryFilter(), HouseholdStatus: &active}
}

func (f *HouseholdFilter) Validate() error {
	if f == nil {
		return nil
	}
	return f.QueryFilter.Validate()
}

// UtilityServiceFilter filters utility services
type UtilityServiceFilter struct {
	*QueryFilter
	ServiceIDs []string         `json:"service_ids,omitempty" form:"service_ids"`
	Category   *ServiceCategory `json:"category,omitempty" form:"category"`
}

func NewUtilityServiceFilter() *UtilityServiceFilter {
	return &UtilityServiceFilter{QueryFilter: NewNoLimitQueryFilter()}
}

// HouseholdMeterFilter filters household meters
type HouseholdMeterFilter struct {
	HouseholdID string `json:"household_id,omitempty" form:"household_id"`
	ServiceID   string `json:"service_id,omitempty" form:"service_id"`
}

// InvoiceFilter filters invoices
type InvoiceFilter struct {
	*QueryFilter
	HouseholdID     string          `json:"household_id,omitempty" form:"household_id"`
	BillingPeriodID string          `json:"billing_period_id,omitempty" form:"billing_period_id"`
	InvoiceStatus   []InvoiceStatus `json:"invoice_status,omitempty" form:"invoice_status"`
}

func NewInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{QueryFilter: NewDefaultQueryFilter()}
}

func (f *InvoiceFilter) Validate() error {
	if f == nil {
		return nil
	}
	return f.QueryFilter.Validate()
}
