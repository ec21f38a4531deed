package auth

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

var guestAdjectives = []string{
	"Happy", "Clever", "Brave", "Wise", "Swift", "Calm", "Bright", "Bold",
	"Gentle", "Keen", "Noble", "Quick", "Silent", "Witty", "Zesty", "Agile",
	"Cosmic", "Dynamic", "Epic", "Fantastic", "Grand", "Heroic", "Infinite",
	"Jolly", "Kinetic", "Legendary", "Majestic", "Nimble", "Optimal", "Perfect",
	"Quantum", "Radiant", "Stellar", "Turbo", "Ultimate", "Vibrant", "Wondrous",
}

var guestNouns = []string{
	"Panda", "Tiger", "Eagle", "Dolphin", "Phoenix", "Dragon", "Wolf", "Falcon",
	"Lynx", "Hawk", "Raven", "Fox", "Bear", "Lion", "Owl", "Shark",
	"Panther", "Cobra", "Pegasus", "Griffin", "Sphinx", "Kraken", "Hydra",
	"Unicorn", "Thunder", "Storm", "Blaze", "Frost", "Shadow", "Lightning",
	"Comet", "Nova", "Nebula", "Galaxy", "Cosmos", "Meteor", "Eclipse",
}

// GuestNameGenerator produces names like "SwiftFalcon412".
type GuestNameGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGuestNameGenerator seeds the generator from src, or randomly when src is nil.
func NewGuestNameGenerator(src rand.Source) *GuestNameGenerator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &GuestNameGenerator{rnd: rand.New(src)}
}

// Next returns an adjective, a noun and a number in [100, 998].
func (g *GuestNameGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	adjective := guestAdjectives[g.rnd.IntN(len(guestAdjectives))]
	noun := guestNouns[g.rnd.IntN(len(guestNouns))]
	return fmt.Sprintf("%s%s%d", adjective, noun, 100+g.rnd.IntN(899))
}
