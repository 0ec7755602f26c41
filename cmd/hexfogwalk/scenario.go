package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// KV is one seed key/value pair, hex-encoded so a scenario file can
// describe arbitrary binary keys in plain text.
type KV struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Scenario describes a trie to build and a partial-visibility pattern
// to impose on a local copy of its node set.
type Scenario struct {
	Name string `yaml:"name"`
	Seed []KV   `yaml:"seed"`

	// HiddenEvery hides every Nth stored node (by hash order) from the
	// local view, forcing the walk to hit MissingTrieNode/
	// MissingTraversalNode and backfill from the remote store. 0 or 1
	// disables hiding.
	HiddenEvery int `yaml:"hidden_every"`
}

func loadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var s Scenario
	if err := yaml.NewDecoder(f).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
