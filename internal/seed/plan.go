// Package seed creates demo data for development databases: users, posts and likes
// generated with gofakeit and shaped by a YAML plan.
package seed

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FixedUser is an account the plan always creates, e.g. a known admin login.
type FixedUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	FullName string `yaml:"full_name"`
	Admin    bool   `yaml:"admin"`
}

// Plan describes how much data to generate.
type Plan struct {
	Users           int         `yaml:"users"`
	PostsPerUser    int         `yaml:"posts_per_user"`
	LikeProbability float64     `yaml:"like_probability"`
	Password        string      `yaml:"password"`
	RandomSeed      int64       `yaml:"random_seed"`
	FixedUsers      []FixedUser `yaml:"fixed_users"`
}

// DefaultPlan is used when no plan file is given.
func DefaultPlan() *Plan {
	return &Plan{
		Users:           20,
		PostsPerUser:    3,
		LikeProbability: 0.3,
		Password:        "password123",
	}
}

// LoadPlan reads a YAML plan. Keys missing from the file keep their default values.
func LoadPlan(path string) (*Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed plan: %w", err)
	}
	return ParsePlan(raw)
}

// ParsePlan decodes a YAML plan over DefaultPlan and validates it.
func ParsePlan(raw []byte) (*Plan, error) {
	plan := DefaultPlan()
	if err := yaml.Unmarshal(raw, plan); err != nil {
		return nil, fmt.Errorf("parse seed plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// Validate checks the plan's bounds.
func (p *Plan) Validate() error {
	if p.Users < 0 || p.PostsPerUser < 0 {
		return errors.New("users and posts_per_user must not be negative")
	}
	if p.LikeProbability < 0 || p.LikeProbability > 1 {
		return errors.New("like_probability must be between 0 and 1")
	}
	if p.Password == "" {
		return errors.New("password is required")
	}
	seen := make(map[string]bool, len(p.FixedUsers))
	for _, u := range p.FixedUsers {
		if u.Username == "" || u.Email == "" {
			return errors.New("fixed users need a username and an email")
		}
		if seen[u.Username] {
			return fmt.Errorf("fixed user %q listed twice", u.Username)
		}
		seen[u.Username] = true
	}
	return nil
}
