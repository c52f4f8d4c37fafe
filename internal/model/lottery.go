package model

// Prize ids outside the limited set.
const (
	PrizeBanner   = "banner"
	PrizeCurrency = "currency"
)

// Prize names recorded in the lottery table. They are shared with the event
// pages of the site, so they stay in the site's language.
const (
	BannerName   = "《星辰》纪念banner"
	CurrencyName = "500虚实构想"
)

// DrawTimeLayout is the layout of lottery.draw_time and prize_status.claimed_time.
const DrawTimeLayout = "2006-01-02 15:04:05"

// DrawDateLayout is the layout of lottery.draw_date.
const DrawDateLayout = "2006-01-02"

// LotteryDraw records the single daily draw of a user.
type LotteryDraw struct {
	UserID   int64  `db:"user_id" json:"user_id"`
	DrawDate string `db:"draw_date" json:"draw_date"`
	Prize    string `db:"prize" json:"prize"`
	DrawTime string `db:"draw_time" json:"draw_time"`
}

// LimitedPrize is a one-of-a-kind prize that can be claimed once globally.
type LimitedPrize struct {
	PrizeID     string  `db:"prize_id" json:"prize_id"`
	PrizeName   string  `db:"prize_name" json:"prize_name"`
	IsClaimed   bool    `db:"is_claimed" json:"is_claimed"`
	ClaimedBy   *int64  `db:"claimed_by" json:"claimed_by,omitempty"`
	ClaimedTime *string `db:"claimed_time" json:"claimed_time,omitempty"`
}

// Winner is a claimed limited prize joined with the winner's name.
type Winner struct {
	PrizeID     string `json:"prize_id"`
	PrizeName   string `json:"prize_name"`
	UserID      int64  `json:"claimed_by"`
	UserName    string `json:"user_name"`
	ClaimedTime string `json:"claimed_time"`
}

// LotteryState is what the lottery page shows a user.
type LotteryState struct {
	Today     string         `json:"today"`
	HasDrawn  bool           `json:"has_drawn"`
	Result    string         `json:"result,omitempty"`
	HasBanner bool           `json:"has_banner"`
	Prizes    []LimitedPrize `json:"limited_prizes"`
	Winners   []Winner       `json:"winners"`
	History   []LotteryDraw  `json:"history"`
}
