package model

// User is the slice of the game server's user row this service reads and writes.
// Ticket is the spendable balance and may go negative.
type User struct {
	UserID int64  `db:"user_id" json:"user_id"`
	Name   string `db:"name" json:"name"`
	Ticket int64  `db:"ticket" json:"ticket"`
}

// Profile is the account view returned to the signed-in page.
type Profile struct {
	User
	PendingPresents []Present    `json:"pending_presents"`
	Banners         []BannerItem `json:"banner_items"`
}
