package seed

// Entry is a single bookmark in the seed YAML.
type Entry struct {
	Title    string   `yaml:"title"`
	URL      string   `yaml:"url"`
	Notes    string   `yaml:"notes"`
	Tags     []string `yaml:"tags"`
	Favorite bool     `yaml:"favorite"`
}

// UserSeed groups a user's seed bookmarks.
type UserSeed struct {
	UserID    string  `yaml:"user"`
	Bookmarks []Entry `yaml:"bookmarks"`
}

// File is the root structure of a seed file:
//
//	users:
//	  - user: user-1
//	    bookmarks:
//	      - title: Example
//	        url: https://example.com
//	        tags: [docs, go]
type File struct {
	Users []UserSeed `yaml:"users"`
}
