package game

// HonorMark is a scoring token.
type HonorMark struct {
	Score int `json:"score"`
}

// honorMarkSet is the fixed token multiset: 11 twos, 13 threes, 11 fours.
var honorMarkSet = []struct {
	score int
	count int
}{
	{2, 11},
	{3, 13},
	{4, 11},
}

// HonorMarkPoolSize is the number of tokens in a full pool.
const HonorMarkPoolSize = 35

func newHonorMarkPool() []HonorMark {
	pool := make([]HonorMark, 0, HonorMarkPoolSize)
	for _, s := range honorMarkSet {
		for i := 0; i < s.count; i++ {
			pool = append(pool, HonorMark{Score: s.score})
		}
	}
	return pool
}
