// Package seed populates the database with demo users, buckets, upvotes and
// comments for development.
package seed

import (
	"context"
	"fmt"
	"strings"

	"bucketlist/internal/database"
	"bucketlist/internal/middleware"
	"bucketlist/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Summary counts what a run created.
type Summary struct {
	Users    int
	Buckets  int
	Upvotes  int
	Comments int
}

// Seeder writes generated data through GORM.
type Seeder struct {
	db         *gorm.DB
	bcryptCost int
}

// NewSeeder returns a Seeder hashing passwords at bcryptCost.
func NewSeeder(db *gorm.DB, bcryptCost int) *Seeder {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Seeder{db: db, bcryptCost: bcryptCost}
}

// Clear drops and recreates every table.
func (s *Seeder) Clear(ctx context.Context) error {
	return database.Reset(ctx, s.db)
}

// Run generates the data described by p in a single transaction.
func (s *Seeder) Run(ctx context.Context, p *Preset) (*Summary, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	faker := gofakeit.New(p.RandomSeed)

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	summary := &Summary{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users, err := createUsers(tx, faker, p.Users, string(hash))
		if err != nil {
			return err
		}
		summary.Users = len(users)

		buckets, err := createBuckets(tx, faker, users, p)
		if err != nil {
			return err
		}
		summary.Buckets = len(buckets)

		if summary.Upvotes, err = createUpvotes(tx, faker, users, buckets, p.UpvoteRatio); err != nil {
			return err
		}
		if summary.Comments, err = createComments(tx, faker, users, buckets, p.CommentsPerBucket); err != nil {
			return err
		}
		return createProfiles(tx, faker, users, buckets)
	})
	if err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "seed complete",
		"preset", p.Name,
		"users", summary.Users,
		"buckets", summary.Buckets,
		"upvotes", summary.Upvotes,
		"comments", summary.Comments,
	)
	return summary, nil
}

func createUsers(tx *gorm.DB, faker *gofakeit.Faker, n int, hash string) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		first, last := faker.FirstName(), faker.LastName()
		username := fmt.Sprintf("%s_%s%d", strings.ToLower(first), strings.ToLower(last), i+1)
		users = append(users, &models.User{
			Username:  username,
			Email:     username + "@example.com",
			Password:  hash,
			FirstName: first,
			LastName:  last,
			IsActive:  true,
		})
	}
	if err := tx.CreateInBatches(users, 100).Error; err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}
	return users, nil
}

var goalVerbs = []string{"Visit", "Learn", "Climb", "Photograph", "Cook", "Run", "Sail to", "Write about", "See"}

func createBuckets(tx *gorm.DB, faker *gofakeit.Faker, users []*models.User, p *Preset) ([]*models.Bucket, error) {
	buckets := make([]*models.Bucket, 0, len(users)*p.BucketsPerUser+len(p.Buckets))
	for _, u := range users {
		for i := 0; i < p.BucketsPerUser; i++ {
			var title string
			if faker.Bool() {
				title = fmt.Sprintf("%s %s", goalVerbs[faker.Number(0, len(goalVerbs)-1)], faker.City())
			} else {
				title = "Take up " + strings.ToLower(faker.Hobby())
			}
			buckets = append(buckets, &models.Bucket{
				Title:       truncate(title, models.TitleMaxLength),
				Description: faker.Paragraph(1, 2, 10, " "),
				OwnerID:     u.ID,
				IsCompleted: faker.Float64Range(0, 1) < p.CompletedRatio,
			})
		}
	}
	for _, fb := range p.Buckets {
		buckets = append(buckets, &models.Bucket{
			Title:       truncate(fb.Title, models.TitleMaxLength),
			Description: fb.Description,
			OwnerID:     users[fb.Owner].ID,
			IsCompleted: fb.Completed,
		})
	}
	if len(buckets) == 0 {
		return buckets, nil
	}
	if err := tx.CreateInBatches(buckets, 200).Error; err != nil {
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return buckets, nil
}

func createUpvotes(tx *gorm.DB, faker *gofakeit.Faker, users []*models.User, buckets []*models.Bucket, ratio float64) (int, error) {
	var upvotes []models.Upvote
	for _, b := range buckets {
		for _, u := range users {
			if faker.Float64Range(0, 1) < ratio {
				upvotes = append(upvotes, models.Upvote{UserID: u.ID, BucketID: b.ID})
			}
		}
	}
	if len(upvotes) == 0 {
		return 0, nil
	}
	if err := tx.CreateInBatches(upvotes, 500).Error; err != nil {
		return 0, fmt.Errorf("create upvotes: %w", err)
	}
	return len(upvotes), nil
}

func createComments(tx *gorm.DB, faker *gofakeit.Faker, users []*models.User, buckets []*models.Bucket, perBucket int) (int, error) {
	var comments []models.Comment
	for _, b := range buckets {
		for i := 0; i < perBucket; i++ {
			author := users[faker.Number(0, len(users)-1)]
			comments = append(comments, models.Comment{
				Text:     faker.Sentence(faker.Number(4, 14)),
				UserID:   author.ID,
				BucketID: b.ID,
			})
		}
	}
	if len(comments) == 0 {
		return 0, nil
	}
	if err := tx.CreateInBatches(comments, 500).Error; err != nil {
		return 0, fmt.Errorf("create comments: %w", err)
	}
	return len(comments), nil
}

// createProfiles writes a profile per user with counters matching the seeded
// buckets.
func createProfiles(tx *gorm.DB, faker *gofakeit.Faker, users []*models.User, buckets []*models.Bucket) error {
	type counts struct{ total, complete uint }
	byOwner := make(map[uint]*counts, len(users))
	for _, b := range buckets {
		c := byOwner[b.OwnerID]
		if c == nil {
			c = &counts{}
			byOwner[b.OwnerID] = c
		}
		c.total++
		if b.IsCompleted {
			c.complete++
		}
	}

	profiles := make([]*models.Profile, 0, len(users))
	for _, u := range users {
		p := &models.Profile{
			UserID:    u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
			Location:  truncate(faker.City(), 100),
			Bio:       faker.Sentence(12),
		}
		if c := byOwner[u.ID]; c != nil {
			p.TotalBuckets = c.total
			p.CompleteBuckets = c.complete
			p.ActiveBuckets = c.total - c.complete
		}
		profiles = append(profiles, p)
	}
	if err := tx.CreateInBatches(profiles, 100).Error; err != nil {
		return fmt.Errorf("create profiles: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
