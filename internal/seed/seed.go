// Package seed populates a database with demo users and activity. Every
// interaction goes through the engine so seeded data carries the same
// notifications and invariants as real traffic.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"socialgraph/internal/engine"
	"socialgraph/internal/identity"
	"socialgraph/internal/models"
	"socialgraph/internal/observability"
	"socialgraph/internal/repository"
	"socialgraph/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options controls how much data is generated.
type Options struct {
	Users           int
	PostsPerUser    int
	FollowsPerUser  int
	LikesPerPost    int
	CommentsPerPost int
	// Seed makes the run reproducible when non-zero.
	Seed int64
}

// DefaultOptions is a small but lively network.
var DefaultOptions = Options{
	Users:           20,
	PostsPerUser:    3,
	FollowsPerUser:  5,
	LikesPerPost:    4,
	CommentsPerPost: 2,
}

// Stats summarises a seeding run.
type Stats struct {
	Users    int
	Posts    int
	Follows  int
	Likes    int
	Comments int
}

func (s Stats) String() string {
	return fmt.Sprintf("users=%d posts=%d follows=%d likes=%d comments=%d",
		s.Users, s.Posts, s.Follows, s.Likes, s.Comments)
}

type Seeder struct {
	db     *gorm.DB
	opts   Options
	users  *service.UserService
	engine *engine.Engine
	rng    *rand.Rand
	faker  *gofakeit.Faker
}

// NewSeeder builds a Seeder with its own engine over db. Seeding does not
// touch caches or realtime delivery.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	users := repository.NewUserRepository(db)
	posts := repository.NewPostRepository(db)
	uow := repository.NewUnitOfWork(db)

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	return &Seeder{
		db:    db,
		opts:  opts,
		users: service.NewUserService(users),
		engine: engine.New(
			service.NewPostService(posts, uow, nil, nil),
			service.NewLikeService(posts, repository.NewLikeRepository(db), uow, nil, nil),
			service.NewFollowService(repository.NewFollowRepository(db), users, uow, nil, nil),
			service.NewCommentService(posts, uow, nil, nil),
		),
		rng:   rand.New(rand.NewSource(seed)),
		faker: gofakeit.New(seed),
	}
}

// ClearAll removes every row, dependents first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := []interface{}{
		&models.Notification{},
		&models.Comment{},
		&models.Like{},
		&models.Follow{},
		&models.Post{},
		&models.User{},
	}
	for _, t := range tables {
		if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(t).Error; err != nil {
			return fmt.Errorf("clear %T: %w", t, err)
		}
	}
	observability.Logger.InfoContext(ctx, "database cleared")
	return nil
}

// Run creates users, then posts, follows, likes and comments among them.
func (s *Seeder) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	actors, err := s.seedUsers(ctx)
	if err != nil {
		return stats, err
	}
	stats.Users = len(actors)

	var posts []*models.Post
	for _, actor := range actors {
		for i := 0; i < s.opts.PostsPerUser; i++ {
			res := s.engine.CreatePost(ctx, actor, s.faker.Paragraph(1, 2, 12, " "), s.imageRef())
			if !res.Success {
				return stats, fmt.Errorf("create post: %s", res.Error)
			}
			posts = append(posts, res.Post)
		}
	}
	stats.Posts = len(posts)

	for _, actor := range actors {
		for _, target := range s.pick(actors, s.opts.FollowsPerUser) {
			if target == actor {
				continue
			}
			targetID, _ := target.ID()
			res := s.engine.ToggleFollow(ctx, actor, targetID)
			if !res.Success {
				return stats, fmt.Errorf("follow: %s", res.Error)
			}
			stats.Follows++
		}
	}

	for _, post := range posts {
		for _, actor := range s.pick(actors, s.opts.LikesPerPost) {
			res := s.engine.ToggleLike(ctx, actor, post.ID, "/")
			if !res.Success {
				return stats, fmt.Errorf("like: %s", res.Error)
			}
			stats.Likes++
		}
		for i := 0; i < s.opts.CommentsPerPost; i++ {
			actor := actors[s.rng.Intn(len(actors))]
			res := s.engine.CreateComment(ctx, actor, post.ID, s.faker.Sentence(s.rng.Intn(12)+3))
			if !res.Success {
				return stats, fmt.Errorf("comment: %s", res.Error)
			}
			stats.Comments++
		}
	}

	observability.Logger.InfoContext(ctx, "seeding complete", "stats", stats.String())
	return stats, nil
}

// seedUsers mirrors fake external identities the way a first sign-in would.
func (s *Seeder) seedUsers(ctx context.Context) ([]identity.Actor, error) {
	actors := make([]identity.Actor, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		username := fmt.Sprintf("%s%d", strings.ToLower(s.faker.Username()), s.faker.Number(100, 999))
		user, err := s.users.SyncUser(ctx, identity.External{
			Subject:  "seed_" + s.faker.UUID(),
			Email:    fmt.Sprintf("%s.%d@%s", username, i, s.faker.DomainName()),
			Name:     s.faker.Name(),
			Username: username,
			ImageURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		})
		if err != nil {
			return nil, fmt.Errorf("sync user: %w", err)
		}
		actors = append(actors, identity.For(user.ID))
	}
	return actors, nil
}

// pick returns up to n distinct actors in random order.
func (s *Seeder) pick(actors []identity.Actor, n int) []identity.Actor {
	if n > len(actors) {
		n = len(actors)
	}
	perm := s.rng.Perm(len(actors))[:n]
	out := make([]identity.Actor, n)
	for i, idx := range perm {
		out[i] = actors[idx]
	}
	return out
}

// imageRef attaches a placeholder image to roughly a third of posts.
func (s *Seeder) imageRef() *string {
	if s.rng.Intn(3) != 0 {
		return nil
	}
	url := fmt.Sprintf("https://picsum.photos/seed/%s/800/800", s.faker.UUID())
	return &url
}
