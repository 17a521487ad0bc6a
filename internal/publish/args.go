package publish

import "strings"

// Args are the command-line options of the release command. Empty values
// mean "not given".
type Args struct {
	Owner  string
	Repo   string
	Notes  string
	Title  string
	Assets []string
}

// ParseArgs reads --owner, --repo, --notes, --title and --assets from argv.
// Value flags take the next token verbatim. --assets consumes every
// following token up to the next one starting with "--". Unknown tokens are
// ignored and there is no help flag.
func ParseArgs(argv []string) Args {
	var out Args
	next := func(i *int) string {
		*i++
		if *i < len(argv) {
			return argv[*i]
		}
		return ""
	}

	for i := 0; i < len(argv); i++ {
		switch argv[i] {
		case "--owner":
			out.Owner = next(&i)
		case "--repo":
			out.Repo = next(&i)
		case "--notes":
			out.Notes = next(&i)
		case "--title":
			out.Title = next(&i)
		case "--assets":
			for i+1 < len(argv) && !strings.HasPrefix(argv[i+1], "--") {
				i++
				out.Assets = append(out.Assets, argv[i])
			}
		}
	}
	return out
}
