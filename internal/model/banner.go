package model

import "strings"

// Course banner item types in user_item. A hidden banner keeps its row with
// an underscore prefixed to both the item id and the type.
const (
	BannerShown  = "course_banner"
	BannerHidden = "_course_banner"
)

// BannerItem is a course banner the user owns.
type BannerItem struct {
	ItemID string `db:"item_id" json:"item_id"`
	Type   string `db:"type" json:"type"`
}

// BannerID strips the hidden marker from an item id.
func BannerID(itemID string) string {
	return strings.TrimLeft(itemID, "_")
}

// Active reports whether the banner is the one shown in game.
func (b *BannerItem) Active() bool {
	return b.Type == BannerShown
}
