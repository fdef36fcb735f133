package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                 string
	MinPlayers           int
	MaxPlayers           int
	RoundDuration        int // seconds
	IntermissionDuration int // seconds
	TotalRounds          int
	Prompts              []string
}

func FromEnv() Config {
	c := Config{}
	c.Port = getenv("PORT", "8080")
	c.MinPlayers = getenvInt("MIN_PLAYERS", 2)
	c.MaxPlayers = getenvInt("MAX_PLAYERS", 8)
	c.RoundDuration = getenvInt("ROUND_DURATION", 60)
	c.IntermissionDuration = getenvInt("INTERMISSION_DURATION", 5)
	c.TotalRounds = getenvInt("TOTAL_ROUNDS", 3)
	c.Prompts = getenvList("PROMPTS", DefaultPrompts)
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvList(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// DefaultPrompts is the built-in word pool used when PROMPTS is not set.
var DefaultPrompts = []string{
	// Animals
	"cat", "dog", "elephant", "giraffe", "penguin", "butterfly", "octopus", "dolphin",
	"tiger", "lion", "bear", "rabbit", "snake", "turtle", "fish", "bird",

	// Objects
	"house", "car", "bicycle", "tree", "flower", "sun", "moon", "star",
	"umbrella", "chair", "table", "lamp", "book", "phone", "computer", "camera",

	// Food
	"pizza", "hamburger", "ice cream", "cake", "apple", "banana", "watermelon", "carrot",
	"bread", "cheese", "egg", "coffee", "tea", "cookie", "donut", "sandwich",

	// Activities
	"running", "swimming", "dancing", "sleeping", "reading", "writing", "cooking", "singing",

	// Nature
	"mountain", "ocean", "river", "cloud", "rainbow", "lightning", "snowflake", "leaf",

	// Misc
	"heart", "smile", "glasses", "hat", "shoe", "key", "clock", "balloon",
}
