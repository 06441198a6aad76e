package gamification

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/xkorin-lab/xkorin/internal/core/score"
)

const (
	// firstLevelXP is the XP needed to leave level 1.
	firstLevelXP = 100

	examBaseXP      = 50
	excellentBonus  = 30
	goodBonus       = 15
	enrollmentXP    = 10
	excellentCutoff = 90
	goodCutoff      = 75
	perfectCutoff   = 100
)

// LevelProgress places a total XP on the level curve.
type LevelProgress struct {
	Level          int
	CurrentLevelXP int
	NextLevelXP    int
}

// Progress walks the curve: level 1 starts at 0 XP and leaving level L costs
// floor(100 * L^1.5) XP.
func Progress(totalXP int) LevelProgress {
	level := 1
	required := 0
	next := firstLevelXP

	for required+next <= totalXP {
		required += next
		level++
		next = int(math.Floor(100 * math.Pow(float64(level), 1.5)))
	}
	return LevelProgress{Level: level, CurrentLevelXP: totalXP - required, NextLevelXP: next}
}

// LevelForXP returns the level reached with totalXP.
func LevelForXP(totalXP int) int {
	return Progress(totalXP).Level
}

// XPForGrade is the exam reward: a base amount plus a tier bonus.
func XPForGrade(pct decimal.Decimal) int {
	xp := examBaseXP
	switch {
	case score.AtLeast(pct, excellentCutoff):
		xp += excellentBonus
	case score.AtLeast(pct, goodCutoff):
		xp += goodBonus
	}
	return xp
}
