package config

// fileSchema is the YAML structure of isorun.yaml.
type fileSchema struct {
	Remote string       `yaml:"remote"`
	Cache  string       `yaml:"cache"`
	Policy policySchema `yaml:"policy"`
}

// policySchema holds the cache budgets. Sizes accept human readable
// values such as "20GB" or "512MiB".
type policySchema struct {
	MaxSize      string `yaml:"max_size"`
	MinFreeSpace string `yaml:"min_free_space"`
	MaxItems     int    `yaml:"max_items"`
}
