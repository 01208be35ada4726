package config

// DefaultRules returns the built-in rule tables.
// This is the baseline knowledge — a rules file can extend or override it.
func DefaultRules() *Rules {
	return &Rules{
		Normalization: NormalizationRules{
			FuzzyThreshold: 0.85,

			// Compound-genre spelling variants -> one hyphenated form.
			CompoundTerms: map[string]string{
				"post metal":   "post-metal",
				"postmetal":    "post-metal",
				"post rock":    "post-rock",
				"postrock":     "post-rock",
				"post punk":    "post-punk",
				"postpunk":     "post-punk",
				"post hardcore": "post-hardcore",
				"posthardcore":  "post-hardcore",
				"black metal":  "black-metal",
				"blackmetal":   "black-metal",
				"death metal":  "death-metal",
				"deathmetal":   "death-metal",
				"doom metal":   "doom-metal",
				"doommetal":    "doom-metal",
				"sludge metal": "sludge-metal",
				"thrash metal": "thrash-metal",
				"speed metal":  "speed-metal",
				"power metal":  "power-metal",
				"folk metal":   "folk-metal",
				"viking metal": "viking-metal",
				"drone metal":  "drone-metal",
				"stoner rock":  "stoner-rock",
				"stoner metal": "stoner-metal",
				"hard rock":    "hard-rock",
				"art rock":     "art-rock",
				"math rock":    "math-rock",
				"mathrock":     "math-rock",
				"krautrock":    "krautrock",
				"kraut rock":   "krautrock",
				"trip hop":     "trip-hop",
				"triphop":      "trip-hop",
				"drum and bass": "drum-and-bass",
				"drum n bass":   "drum-and-bass",
				"dnb":           "drum-and-bass",
				"synth pop":     "synth-pop",
				"synthpop":      "synth-pop",
				"dream pop":     "dream-pop",
				"dreampop":      "dream-pop",
				"noise rock":    "noise-rock",
				"no wave":       "no-wave",
				"new wave":      "new-wave",
				"free jazz":     "free-jazz",
				"avant garde":   "avant-garde",
				"avantgarde":    "avant-garde",
			},

			// Exact misspelling corrections.
			Misspellings: map[string]string{
				"pyschedelic":  "psychedelic",
				"psychadelic":  "psychedelic",
				"pschedelic":   "psychedelic",
				"progessive":   "progressive",
				"progresive":   "progressive",
				"agressive":    "aggressive",
				"atmopheric":   "atmospheric",
				"atmosheric":   "atmospheric",
				"amospheric":   "atmospheric",
				"expiremental": "experimental",
				"experimantal": "experimental",
				"eletronic":    "electronic",
				"electonic":    "electronic",
				"sympohnic":    "symphonic",
				"shoegazing":   "shoegaze",
			},

			// Word-level regional/cultural standardization.
			Regional: map[string]string{
				"nordic":      "scandinavian",
				"norweigan":   "norwegian",
				"teutonic":    "german",
				"britsh":      "british",
				"us":          "american",
				"usa":         "american",
				"uk":          "british",
			},

			// Exact-phrase synonym folding. One canonical form per concept.
			// "prog metal" and "progressive metal" fold to "prog-metal",
			// consistent with "prog-rock".
			Synonyms: map[string]string{
				"prog":              "prog-rock",
				"prog rock":         "prog-rock",
				"prog-rock":         "prog-rock",
				"progressive rock":  "prog-rock",
				"progressive-rock":  "prog-rock",
				"prog metal":        "prog-metal",
				"prog-metal":        "prog-metal",
				"progressive metal": "prog-metal",
				"progressive-metal": "prog-metal",
				"idm":               "intelligent-dance-music",
				"electronica":       "electronic",
				"electro":           "electronic",
				"hip hop":           "hip-hop",
				"hiphop":            "hip-hop",
				"rap":               "hip-hop",
				"r&b":               "rhythm-and-blues",
				"rnb":               "rhythm-and-blues",
				"singer songwriter": "singer-songwriter",
				"alt rock":          "alternative-rock",
				"alt-rock":          "alternative-rock",
				"alternative":       "alternative-rock",
				"heavy metal":       "heavy-metal",
				"nwobhm":            "heavy-metal",
				"grind":             "grindcore",
				"bm":                "black-metal",
				"dm":                "death-metal",
				"ambient music":     "ambient",
				"dark ambient":      "dark-ambient",
				"neo folk":          "neofolk",
				"neo-folk":          "neofolk",
			},

			// Atomic decomposition of known compounds into ordered base tags.
			Decompositions: map[string][]string{
				"melodic death metal":     {"melodic", "death", "metal"},
				"atmospheric black metal": {"atmospheric", "black", "metal"},
				"symphonic black metal":   {"symphonic", "black", "metal"},
				"progressive death metal": {"progressive", "death", "metal"},
				"technical death metal":   {"technical", "death", "metal"},
				"blackened death metal":   {"blackened", "death", "metal"},
				"funeral doom metal":      {"funeral", "doom", "metal"},
				"psychedelic folk rock":   {"psychedelic", "folk", "rock"},
			},

			// Seed canonical vocabulary for the fuzzy fallback.
			KnownTags: []string{
				"metal", "black-metal", "death-metal", "doom-metal",
				"thrash-metal", "speed-metal", "power-metal", "heavy-metal",
				"folk-metal", "viking-metal", "sludge-metal", "stoner-metal",
				"drone-metal", "post-metal", "prog-metal", "grindcore",
				"rock", "hard-rock", "art-rock", "math-rock", "post-rock",
				"prog-rock", "alternative-rock", "stoner-rock", "noise-rock",
				"psychedelic-rock", "garage-rock", "krautrock", "new-wave",
				"no-wave", "shoegaze", "dream-pop", "synth-pop", "indie-pop",
				"pop", "electronic", "ambient", "dark-ambient", "techno",
				"house", "trance", "intelligent-dance-music", "trip-hop",
				"drum-and-bass", "industrial", "ebm", "jazz", "free-jazz",
				"jazz-fusion", "swing", "bebop", "folk", "neofolk",
				"folk-rock", "singer-songwriter", "americana", "country",
				"blues", "rhythm-and-blues", "soul", "funk", "hip-hop",
				"punk", "hardcore-punk", "post-punk", "post-hardcore",
				"crust-punk", "experimental", "avant-garde", "noise",
				"atmospheric", "melodic", "symphonic", "progressive",
				"psychedelic", "instrumental", "acoustic", "lo-fi",
			},
		},

		Hierarchy: HierarchyRules{
			Modifiers: []string{
				"atmospheric", "melodic", "symphonic", "progressive",
				"technical", "brutal", "blackened", "depressive",
				"psychedelic", "experimental", "instrumental", "acoustic",
				"dark", "funeral", "epic", "raw", "old-school",
			},
			BaseGenres: []string{
				"metal", "rock", "punk", "pop", "jazz", "folk", "blues",
				"ambient", "techno", "house", "hardcore", "doom", "drone",
				"industrial", "country", "soul", "funk",
			},
		},

		// Category keywords, checked in domain.Categories order.
		Categories: map[string][]string{
			"metal": {
				"metal", "grindcore", "deathcore", "metalcore", "doom",
				"sludge", "djent",
			},
			"rock": {
				"rock", "shoegaze", "krautrock", "grunge", "britpop",
				"new-wave", "no-wave",
			},
			"electronic": {
				"electronic", "ambient", "techno", "house", "trance",
				"intelligent-dance-music", "trip-hop", "drum-and-bass",
				"industrial", "ebm", "synth", "electro", "glitch", "dub",
			},
			"jazz": {"jazz", "bebop", "swing", "fusion"},
			"folk": {
				"folk", "americana", "country", "bluegrass",
				"singer-songwriter", "neofolk",
			},
			"punk": {"punk", "hardcore", "emo", "screamo", "oi"},
			"pop":  {"pop", "disco", "soul", "funk", "rhythm-and-blues"},
			"experimental": {
				"experimental", "avant-garde", "noise", "drone", "musique",
			},
		},

		Consolidation: ConsolidationRules{
			FrequencyRatio: 2.0,
			Rules: []ConsolidationRule{
				// Hyphen/space variants of the same compound.
				{Pattern: `[\s-]+`, Replacement: "-", MinSimilarity: 0.80, Priority: 100},
				// "xxx music" suffix adds nothing.
				{Pattern: `\s+music$`, Replacement: "", MinSimilarity: 0.70, Priority: 90},
				// Trailing plural.
				{Pattern: `s$`, Replacement: "", MinSimilarity: 0.90, Priority: 50},
			},
		},

		Validation: ValidationRules{
			MinLength: 2,
			MaxLength: 60,
			FormatWords: []string{
				"lp", "ep", "cd", "cdr", "7inch", "12inch", "vinyl",
				"cassette", "single", "album", "compilation", "bootleg",
				"remaster", "remastered", "reissue", "deluxe", "bonus",
				"demo", "promo", "ost", "soundtrack",
			},
			GenericWords: []string{
				"good", "great", "bad", "best", "favorite", "favourite",
				"awesome", "cool", "nice", "new", "old", "misc", "other",
				"unknown", "various", "music", "seen-live", "owned",
				"wishlist", "to-listen", "check-out",
			},
		},
	}
}
