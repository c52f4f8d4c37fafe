package model

import "time"

// Item types delivered through the mailbox.
const (
	ItemMemory   = "memory"
	ItemFragment = "fragment"
)

// Present is a mailbox delivery waiting to be redeemed by the game client.
type Present struct {
	PresentID   string        `db:"present_id" json:"present_id"`
	ExpireTS    int64         `db:"expire_ts" json:"expire_ts"` // epoch millis
	Description string        `db:"description" json:"description"`
	Items       []PresentItem `db:"-" json:"items"`
}

// Expired reports whether the present is past its expiry at nowMillis.
func (p *Present) Expired(nowMillis int64) bool {
	return p.ExpireTS < nowMillis
}

// PresentItem is one (item, type, signed amount) line of a present.
type PresentItem struct {
	PresentID string `db:"present_id" json:"-"`
	ItemID    string `db:"item_id" json:"item_id"`
	Type      string `db:"type" json:"type"`
	Amount    int64  `db:"amount" json:"amount"`
}

// Line builds a present line where the item id equals its type, as used for
// the memory and fragment currencies.
func Line(itemType string, amount int64) PresentItem {
	return PresentItem{ItemID: itemType, Type: itemType, Amount: amount}
}

// Millis converts t to the epoch-millisecond timestamps stored in present.expire_ts.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
