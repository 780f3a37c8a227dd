package seed

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Preset describes how much demo data to generate. Fixed buckets are created
// verbatim in addition to the generated ones.
type Preset struct {
	Name              string        `yaml:"name"`
	Users             int           `yaml:"users"`
	BucketsPerUser    int           `yaml:"buckets_per_user"`
	CompletedRatio    float64       `yaml:"completed_ratio"`
	UpvoteRatio       float64       `yaml:"upvote_ratio"`
	CommentsPerBucket int           `yaml:"comments_per_bucket"`
	Password          string        `yaml:"password"`
	RandomSeed        int64         `yaml:"random_seed"`
	Buckets           []FixedBucket `yaml:"buckets"`
}

// FixedBucket is a hand-written bucket owned by the nth generated user.
type FixedBucket struct {
	Owner       int    `yaml:"owner"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Completed   bool   `yaml:"completed"`
}

// DefaultPassword is used when a preset does not set one.
const DefaultPassword = "Bucketlist#Demo1"

// DefaultPreset is a small data set for local development.
func DefaultPreset() *Preset {
	return &Preset{
		Name:              "default",
		Users:             10,
		BucketsPerUser:    4,
		CompletedRatio:    0.3,
		UpvoteRatio:       0.25,
		CommentsPerBucket: 2,
		Password:          DefaultPassword,
	}
}

// LoadPreset reads a YAML preset. Unset fields keep DefaultPreset values.
func LoadPreset(path string) (*Preset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}
	p := DefaultPreset()
	if err := yaml.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("parse preset %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("preset %s: %w", path, err)
	}
	return p, nil
}

// Validate rejects presets the seeder cannot honour.
func (p *Preset) Validate() error {
	if p.Users <= 0 {
		return errors.New("users must be positive")
	}
	if p.BucketsPerUser < 0 || p.CommentsPerBucket < 0 {
		return errors.New("counts must not be negative")
	}
	for _, r := range []float64{p.CompletedRatio, p.UpvoteRatio} {
		if r < 0 || r > 1 {
			return errors.New("ratios must be between 0 and 1")
		}
	}
	for i, b := range p.Buckets {
		if b.Owner < 0 || b.Owner >= p.Users {
			return fmt.Errorf("bucket %d: owner %d out of range", i, b.Owner)
		}
		if b.Title == "" {
			return fmt.Errorf("bucket %d: title is required", i)
		}
	}
	if p.Password == "" {
		p.Password = DefaultPassword
	}
	return nil
}
