package store

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var subjects = []string{
	"algebra", "geometry", "calculus", "physics", "biology", "chemistry", "history", "geography",
	"grammar", "poetry", "painting", "music", "coding", "robotics", "astronomy", "botany",
	"economics", "statistics", "logic", "rhetoric", "anatomy", "ecology", "geology", "optics",
}

var animals = []string{
	"kitten", "puppy", "bunny", "panda", "koala", "fox", "otter", "hedgehog", "squirrel", "hamster",
	"dolphin", "whale", "narwhal", "penguin", "flamingo", "toucan", "parrot", "raccoon", "beaver", "ferret",
}

var colors = []string{
	"golden", "silver", "crimson", "emerald", "violet", "azure", "amber", "coral", "ivory", "jade",
	"scarlet", "indigo", "teal", "maroon", "olive", "copper", "pearl", "ruby", "sapphire", "topaz",
}

// newRoomCode creates a random, memorable room code in the form
// subject-color-animal (e.g. "algebra-golden-otter"). taken, when non-nil,
// rejects codes that are already in use.
func newRoomCode(taken func(string) bool) string {
	for {
		code := fmt.Sprintf("%s-%s-%s",
			subjects[randomIndex(len(subjects))],
			colors[randomIndex(len(colors))],
			animals[randomIndex(len(animals))])
		if taken == nil || !taken(code) {
			return code
		}
	}
}

// randomIndex returns a cryptographically secure random index below max.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(fmt.Sprintf("generate random index: %v", err))
	}
	return int(n.Int64())
}
