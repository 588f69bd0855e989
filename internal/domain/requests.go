package domain

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RequestTarget is one normalized (period, category) pair to compute a
// ceiling for.
type RequestTarget struct {
	Period   string
	Category string
}

// RequestEntry is one line of a request set as written by the user:
// a target period and the categories wanted for it.
type RequestEntry struct {
	Period     string   `yaml:"period"`
	Categories []string `yaml:"categories"`
}

// RequestSet is a batch of compute requests, typically loaded from a
// YAML file:
//
//	requests:
//	  - period: 2024-06-01
//	    categories: [monthly, annual]
type RequestSet struct {
	Requests []RequestEntry `yaml:"requests"`
}

// ParseRequestFile decodes a YAML request set.
func ParseRequestFile(data []byte) (*RequestSet, error) {
	var set RequestSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse request file: %w", err)
	}
	if len(set.Requests) == 0 {
		return nil, fmt.Errorf("request file names no requests")
	}
	return &set, nil
}

// Normalize validates the set and flattens it into deduplicated
// targets in deterministic order (period, then category). The
// normalized form is what makes compute runs reproducible regardless
// of how the request set was written.
func (s *RequestSet) Normalize() ([]RequestTarget, error) {
	seen := make(map[RequestTarget]bool)
	var targets []RequestTarget

	for i, entry := range s.Requests {
		period, err := ParseDate(strings.TrimSpace(entry.Period))
		if err != nil {
			return nil, fmt.Errorf("request %d: period %q is not a valid date", i, entry.Period)
		}
		if len(entry.Categories) == 0 {
			return nil, fmt.Errorf("request %d: at least one category is required", i)
		}

		for _, raw := range entry.Categories {
			category := strings.ToLower(strings.TrimSpace(raw))
			if category == "" {
				return nil, fmt.Errorf("request %d: empty category", i)
			}

			target := RequestTarget{Period: period, Category: category}
			if seen[target] {
				continue
			}
			seen[target] = true
			targets = append(targets, target)
		}
	}

	sort.Slice(targets, func(i, j int) bool {
		if targets[i].Period != targets[j].Period {
			return targets[i].Period < targets[j].Period
		}
		return targets[i].Category < targets[j].Category
	})

	return targets, nil
}
