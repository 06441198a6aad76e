package gamification

// Badge is a one-time award carrying an XP bonus.
type Badge struct {
	ID      string
	Name    string
	Icon    string
	Rarity  string
	XPBonus int
}

var PerfectScore = Badge{
	ID:      "perfect-score",
	Name:    "Score Parfait",
	Icon:    "🏆",
	Rarity:  "rare",
	XPBonus: 50,
}
