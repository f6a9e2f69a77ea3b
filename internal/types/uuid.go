package types

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	UUID_PREFIX_HOUSEHOLD       = "hh"
	UUID_PREFIX_SERVICE         = "svc"
	UUID_PREFIX_MAIN_METER      = "mm"
	UUID_PREFIX_HOUSEHOLD_METER = "hm"
	UUID_PREFIX_BILLING_PERIOD  = "bp"
	UUID_PREFIX_READING         = "rd"
	UUID_PREFIX_PRICING         = "pr"
	UUID_PREFIX_RECONCILIATION  = "rec"
	UUID_PREFIX_LINE_ITEM       = "ub"
	UUID_PREFIX_INVOICE         = "inv"
	UUID_PREFIX_PAYMENT         = "pay"
	UUID_PREFIX_SHARED_COST     = "sc"
	UUID_PREFIX_BILLING_RUN     = "run"
	UUID_PREFIX_EVENT           = "evt"
)

// GenerateUUID returns a lowercase ULID
func GenerateUUID() string {
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String())
}

// GenerateUUIDWithPrefix returns a ULID prefixed with the entity prefix, e.g. "inv_01h..."
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return prefix + "_" + GenerateUUID()
}
