package identity

import "github.com/mcoot/arenasession/internal/dependencies/random"

var (
	nameAdjectives = []string{
		"Brave", "Quiet", "Rusty", "Swift", "Gloomy", "Lucky", "Crimson", "Frosty",
		"Sleepy", "Wild", "Humble", "Shiny",
	}
	nameNouns = []string{
		"Badger", "Comet", "Falcon", "Golem", "Heron", "Lantern", "Mole", "Otter",
		"Pebble", "Raven", "Thistle", "Wisp",
	}
)

// GenerateName returns an adjective + noun display name
func GenerateName(rnd random.Random) string {
	return nameAdjectives[rnd.Intn(len(nameAdjectives))] + " " + nameNouns[rnd.Intn(len(nameNouns))]
}
