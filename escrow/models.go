package escrow

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest value a NUMERIC(14,2) money column holds.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// Breakdown splits held funds by allocation state. All fields share one
// currency and are never negative.
type Breakdown struct {
	AllocatedActive decimal.Decimal
	Released        decimal.Decimal
	PendingRelease  decimal.Decimal
	Unallocated     decimal.Decimal
}

// Total is always the sum of the breakdown; it is never stored.
func (b Breakdown) Total() decimal.Decimal {
	return b.AllocatedActive.Add(b.Released).Add(b.PendingRelease).Add(b.Unallocated)
}

// SnapshotPoint is one recorded breakdown in the history series.
type SnapshotPoint struct {
	TakenAt time.Time
	Breakdown
}

// Snapshot is the current breakdown plus its recorded history, oldest first.
type Snapshot struct {
	Breakdown
	History []SnapshotPoint
}

// Status is the liquidity classification shown on the dashboard.
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusWatch   Status = "watch"
	StatusRisk    Status = "risk"
)

// LiquidityHealth relates available funds to obligations coming due.
type LiquidityHealth struct {
	Status      Status
	Ratio       float64
	Explanation string
}

type TransactionType string

const (
	TypeFunding    TransactionType = "Funding"
	TypeRelease    TransactionType = "Release"
	TypeAdjustment TransactionType = "Adjustment"
)

type TransactionStatus string

const (
	TxCompleted TransactionStatus = "Completed"
	TxPending   TransactionStatus = "Pending"
	TxFailed    TransactionStatus = "Failed"
)

// Direction states whether an entry adds to or removes from escrow. Funding
// and Release rows leave it empty; their type implies it.
type Direction string

const (
	DirectionNone   Direction = ""
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Transaction is one escrow ledger entry. CampaignName is copied at write
// time so renamed or deleted campaigns keep their history.
type Transaction struct {
	ID           string
	OwnerID      string
	Date         time.Time
	CampaignID   *string
	CampaignName string
	Type         TransactionType
	Direction    Direction
	Amount       decimal.Decimal
	Status       TransactionStatus
	Note         string
}

// AdjustmentRequest is a manual correction to escrow funds.
type AdjustmentRequest struct {
	CampaignID *string
	Amount     decimal.Decimal
	Direction  Direction
	Note       string
}

// Position holds the raw sums the breakdown is derived from.
type Position struct {
	Funded         decimal.Decimal
	Released       decimal.Decimal
	DueSoon        decimal.Decimal
	NetAdjustments decimal.Decimal
}
