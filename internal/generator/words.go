package generator

import "fmt"

type wordLists struct {
	firstNames []string
	lastNames  []string
	adjectives []string
	nouns      []string
	genreNames []string
}

func defaultWordLists() wordLists {
	return wordLists{
		firstNames: []string{"Amara", "Bo", "Chiara", "Dev", "Elif", "Farah", "Gustav", "Hana", "Ines", "Jonas", "Kofi", "Lena", "Mateo", "Nadia", "Oren", "Priya", "Quinn", "Rosa", "Sami", "Tomas"},
		lastNames:  []string{"Adeyemi", "Berg", "Castillo", "Dubois", "Eriksen", "Fischer", "Gupta", "Haddad", "Ito", "Jansen", "Kowalski", "Lindqvist", "Moreau", "Nakamura", "Okafor", "Petrov", "Rossi", "Silva", "Tanaka", "Varga"},
		adjectives: []string{"Silent", "Hidden", "Last", "Burning", "Glass", "Northern", "Crimson", "Forgotten", "Hollow", "Winter", "Salt", "Paper"},
		nouns:      []string{"Orchard", "Lighthouse", "Archive", "Garden", "River", "Cartographer", "Harbour", "Station", "Library", "Bridge", "Atlas", "Meridian"},
		genreNames: []string{"fantasy", "science fiction", "mystery", "romance", "history", "biography", "poetry", "travel", "cookery", "philosophy", "horror", "children", "graphic novels", "nature", "economics", "art"},
	}
}

// genres returns n genre labels, numbering them once the named ones run out.
func (w wordLists) genres(n int) []string {
	out := make([]string, n)
	for i := range out {
		if i < len(w.genreNames) {
			out[i] = w.genreNames[i]
		} else {
			out[i] = fmt.Sprintf("genre %d", i+1)
		}
	}
	return out
}
