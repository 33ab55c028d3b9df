package categories

// File is the top-level structure of categories.yaml.
//
//	categories:
//	  - name: AI
//	    keywords: [ai, llm, "machine learning"]
type File struct {
	Categories []Entry `yaml:"categories"`
}

// Entry is one category as written in the file.
type Entry struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Disabled bool     `yaml:"disabled,omitempty"`
}
