package escrow

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var currencyPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatAmount renders a non-negative amount in dollars with two decimals
// and thousands grouping, e.g. $40,000.00.
func FormatAmount(amount decimal.Decimal) string {
	return currencyPrinter.Sprintf("$%.2f", amount.Abs().Round(2).InexactFloat64())
}

// Sign is "+" for money entering escrow and "-" for money leaving it.
// Adjustments follow their explicit direction and count as outflows when
// none is recorded.
func Sign(tx Transaction) string {
	switch tx.Type {
	case TypeFunding:
		return "+"
	case TypeAdjustment:
		if tx.Direction == DirectionCredit {
			return "+"
		}
		return "-"
	default:
		return "-"
	}
}

// FeedItem is one rendered row of the transaction feed.
type FeedItem struct {
	ID              string            `json:"id"`
	Date            time.Time         `json:"date"`
	CampaignName    string            `json:"campaignName"`
	Type            TransactionType   `json:"type"`
	Direction       Direction         `json:"direction,omitempty"`
	Status          TransactionStatus `json:"status"`
	Note            string            `json:"note,omitempty"`
	Icon            string            `json:"icon"`
	Color           string            `json:"color"`
	Sign            string            `json:"sign"`
	Amount          float64           `json:"amount"`
	FormattedAmount string            `json:"formattedAmount"`
}

func typeStyle(t TransactionType) (icon, color string) {
	switch t {
	case TypeFunding:
		return "arrow-down-left", "text-emerald-600"
	case TypeRelease:
		return "arrow-up-right", "text-indigo-600"
	case TypeAdjustment:
		return "sliders", "text-amber-600"
	default:
		return "file-text", "text-slate-500"
	}
}

// RenderFeed renders transactions in the order given.
func RenderFeed(txs []Transaction) []FeedItem {
	items := make([]FeedItem, 0, len(txs))
	for _, tx := range txs {
		icon, color := typeStyle(tx.Type)
		sign := Sign(tx)
		items = append(items, FeedItem{
			ID:              tx.ID,
			Date:            tx.Date,
			CampaignName:    tx.CampaignName,
			Type:            tx.Type,
			Direction:       tx.Direction,
			Status:          tx.Status,
			Note:            tx.Note,
			Icon:            icon,
			Color:           color,
			Sign:            sign,
			Amount:          tx.Amount.Round(2).InexactFloat64(),
			FormattedAmount: sign + FormatAmount(tx.Amount),
		})
	}
	return items
}
