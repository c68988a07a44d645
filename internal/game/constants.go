package game

// DefaultCategories is the stock category list shown to the host. Hosts can
// add and remove categories freely in the lobby.
var DefaultCategories = []string{
	"ארץ",
	"עיר",
	"חי",
	"צומח",
	"דמות",
	"מקצוע",
	"חפץ",
	"סרט",
	"מאכל",
}

var HebrewAlphabet = []string{
	"א", "ב", "ג", "ד", "ה", "ו", "ז", "ח", "ט", "י", "כ", "ל", "מ",
	"נ", "ס", "ע", "פ", "צ", "ק", "ר", "ש", "ת",
}

var (
	RoundTimes  = []int{30, 45, 60, 90}
	RoundCounts = []int{2, 4, 6, 8}
)

// Career points applied to a player's cumulative stats after a game.
const (
	WinPoints          = 30
	LosePoints         = 5
	DrawPoints         = 10
	ForfeitGamePenalty = -50
)

// Round forfeit arithmetic.
const (
	ForfeitRoundPenalty    = -20
	ForfeitRewardBase      = 30
	ForfeitRewardEscalated = 50 // final round, or forfeiting team already leading
)

// Extra time window granted to the side that has not finished once the other
// side completes, in seconds.
const ExtraTimeSeconds = 15

// TeamCapacity holds per-team slot counts for a game structure.
type TeamCapacity struct {
	A int
	B int
}

var StructureCapacities = map[Structure]TeamCapacity{
	Structure1v1:        {A: 1, B: 1},
	Structure2v2:        {A: 2, B: 2},
	Structure1v2:        {A: 1, B: 2},
	Structure1v3:        {A: 1, B: 3},
	StructureFreeForAll: {A: 2, B: 2},
}

// TotalCapacity is the structure's overall player capacity, always the sum of
// both team slot counts.
func TotalCapacity(s Structure) int {
	c := StructureCapacities[s]
	return c.A + c.B
}

func DefaultSettings() Settings {
	cats := make([]string, len(DefaultCategories))
	copy(cats, DefaultCategories)
	return Settings{
		RoundTime:  45,
		Rounds:     4,
		Categories: cats,
		Difficulty: DifficultyNormal,
		Mode:       ModeVsComputer,
		Structure:  Structure1v1,
	}
}
