package sample

import "time"

// Config controls the shape of a synthetic window.
type Config struct {
	Producer string
	Release  string

	Subjects   int // threads or commits
	People     int // distinct contributors
	Orgs       int // organizations with a corporate fragment
	MaxReviews int // review events per subject, at most

	AliasRate     float64 // share of people who also post from a personal address
	SelfRate      float64 // chance that a review is by the author
	RelayRate     float64 // chance that a review arrives through the list relay
	BotRate       float64 // chance that a subject gets a bot review
	DuplicateRate float64 // chance that an event is delivered twice

	Seed  uint64
	Start time.Time
}

// DefaultConfig returns a small mail window.
func DefaultConfig() Config {
	return Config{
		Producer:      "mail",
		Release:       "sample",
		Subjects:      200,
		People:        40,
		Orgs:          5,
		MaxReviews:    3,
		AliasRate:     0.25,
		SelfRate:      0.05,
		RelayRate:     0.05,
		BotRate:       0.1,
		DuplicateRate: 0.02,
		Seed:          1,
		Start:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Stats tallies what Generate produced.
type Stats struct {
	Events      int `json:"events"`
	Subjects    int `json:"subjects"`
	Reviews     int `json:"reviews"`
	SelfReviews int `json:"self_reviews"`
	Relayed     int `json:"relayed"`
	Bots        int `json:"bots"`
	Duplicates  int `json:"duplicates"`
	Aliases     int `json:"aliases"`
}
