package engine

import "slices"

// HeroPool is the fixed catalog of assignable heroes. Treat as read-only;
// use Pool() when a mutable copy is needed.
var HeroPool = []string{
	"hulk",
	"loki",
	"thanos",
	"iron_man",
	"spider_man",
	"doctor_strange",
	"thor",
	"wolverine",
	"groot",
	"star_lord",
	"vision",
	"black_panther",
}

// Pool returns a copy of HeroPool.
func Pool() []string {
	return slices.Clone(HeroPool)
}

func inPool(hero string) bool {
	return slices.Contains(HeroPool, hero)
}
