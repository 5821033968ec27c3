package seed

import (
	"fmt"
	"log"

	"snapgram/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder.
type Options struct {
	NumUsers   int
	NumPosts   int
	MaxDays    int
	SkipBcrypt bool
}

// conversationNames are the built-in rooms created on every seed run.
// Seeding is idempotent per name.
var conversationNames = []string{
	"General", "Movies", "Music", "Gaming", "Fitness", "Sports",
	"Technology", "Books", "Food", "Travel", "Programming", "Art",
	"Science", "Pets", "Finance",
}

// Seeder populates the database with demo data.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts)}
}

// ClearAll removes all seeded data and resets identity sequences.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	if s.db.Dialector.Name() == "postgres" {
		return s.db.Exec(`TRUNCATE TABLE comments, likes, images, posts, messages, conversations, users RESTART IDENTITY CASCADE;`).Error
	}
	for _, table := range []string{"comments", "likes", "images", "posts", "messages", "conversations", "users"} {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedUsers creates count users with the shared development password.
func (s *Seeder) SeedUsers(count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			log.Printf("Failed to create user: %v", err)
			continue
		}
		users = append(users, user)

		if i > 0 && i%100 == 0 {
			log.Printf("Created %d users...", i)
		}
	}
	log.Printf("%d users created", len(users))
	return users, nil
}

// SeedPosts creates count posts spread across the given users.
func (s *Seeder) SeedPosts(users []*models.User, count int) ([]*models.Post, error) {
	if len(users) == 0 {
		return nil, fmt.Errorf("cannot seed posts without users")
	}

	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		user := users[gofakeit.Number(0, len(users)-1)]
		posts = append(posts, s.factory.BuildPost(user))
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return nil, err
	}
	log.Printf("%d posts created", len(posts))
	return posts, nil
}

// SeedEngagement sprinkles likes and comments across the given posts.
// Likes stay unique per user and post.
func (s *Seeder) SeedEngagement(users []*models.User, posts []*models.Post) error {
	if len(users) == 0 || len(posts) == 0 {
		return nil
	}

	for _, post := range posts {
		numLikes := gofakeit.Number(0, min(len(users), 10))
		likers := userIndexes(len(users))
		gofakeit.ShuffleInts(likers)
		for _, i := range likers[:numLikes] {
			if err := s.factory.CreateLike(users[i], post); err != nil {
				return err
			}
		}

		numComments := gofakeit.Number(0, 4)
		for i := 0; i < numComments; i++ {
			commenter := users[gofakeit.Number(0, len(users)-1)]
			if _, err := s.factory.CreateComment(commenter, post); err != nil {
				return err
			}
		}
	}
	log.Println("Engagement seeded")
	return nil
}

// SeedConversations ensures the built-in rooms exist and adds a little
// chatter to each from random users.
func (s *Seeder) SeedConversations(users []*models.User) error {
	for _, name := range conversationNames {
		conv, err := s.factory.CreateConversation(name)
		if err != nil {
			return err
		}

		if len(users) == 0 {
			continue
		}
		numMessages := gofakeit.Number(0, 6)
		for i := 0; i < numMessages; i++ {
			sender := users[gofakeit.Number(0, len(users)-1)]
			if _, err := s.factory.CreateMessage(conv, sender); err != nil {
				return err
			}
		}
	}
	log.Printf("%d conversations available", len(conversationNames))
	return nil
}

// Conversations creates the built-in rooms without any demo users or
// chatter. Used at startup when built-in seeding is enabled.
func Conversations(db *gorm.DB) error {
	for _, name := range conversationNames {
		conv := &models.Conversation{}
		if err := db.Where(models.Conversation{Name: name}).FirstOrCreate(conv).Error; err != nil {
			return err
		}
	}
	return nil
}

// Run seeds users, posts, engagement and conversations per the options.
func (s *Seeder) Run(opts Options) error {
	log.Printf("Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	users, err := s.SeedUsers(opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	posts, err := s.SeedPosts(users, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	if err := s.SeedEngagement(users, posts); err != nil {
		return fmt.Errorf("failed to seed engagement: %w", err)
	}
	if err := s.SeedConversations(users); err != nil {
		return fmt.Errorf("failed to seed conversations: %w", err)
	}

	log.Println("Database seeding completed")
	return nil
}

func userIndexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
