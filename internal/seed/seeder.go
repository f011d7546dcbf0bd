package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Summary reports what a seeding run created.
type Summary struct {
	Profiles  []*models.Profile
	Published int
	Drafts    int
	Likes     int
	Bookmarks int
	Comments  int
}

// Seeder creates demo content through the services.
type Seeder struct {
	profiles   *service.ProfileService
	posts      *service.PostService
	engagement *service.EngagementService
	comments   *service.CommentService
}

// NewSeeder wires its own services on db. It runs without cache or events.
func NewSeeder(db *gorm.DB) *Seeder {
	postRepo := repository.NewPostRepository(db)
	imageRepo := repository.NewImageRepository(db)
	tags := service.NewTagRegistry(db, repository.NewTagRepository(db))

	return &Seeder{
		profiles: service.NewProfileService(db, repository.NewProfileRepository(db), postRepo, imageRepo, nil),
		posts:    service.NewPostService(db, postRepo, imageRepo, tags, nil, nil, false),
		engagement: service.NewEngagementService(db, postRepo, repository.NewLikeRepository(db),
			repository.NewBookmarkRepository(db), nil, nil),
		comments: service.NewCommentService(db, repository.NewCommentRepository(db), postRepo, false),
	}
}

// Run creates the content described by p.
func (s *Seeder) Run(ctx context.Context, p Preset) (*Summary, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	faker := gofakeit.New(p.RandomSeed)
	sum := &Summary{}

	for i := 0; i < p.Profiles; i++ {
		username := fmt.Sprintf("%s%d", strings.ToLower(faker.Username()), i+1)
		profile, _, err := s.profiles.EnsureProfile(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", username, err)
		}
		bio := faker.Sentence(12)
		if _, err := s.profiles.UpdateMyProfile(ctx, profile.ID, service.ProfilePatch{Biography: &bio}); err != nil {
			return nil, fmt.Errorf("profile %s: %w", username, err)
		}
		sum.Profiles = append(sum.Profiles, profile)
	}

	var published []*models.Post
	for _, profile := range sum.Profiles {
		for i := 0; i < p.PostsPerProfile+p.DraftsPerProfile; i++ {
			post, err := s.writePost(ctx, faker, p, profile.ID, i < p.PostsPerProfile)
			if err != nil {
				return nil, err
			}
			if post.IsDraft {
				sum.Drafts++
			} else {
				published = append(published, post)
			}
		}
	}
	sum.Published = len(published)

	for _, post := range published {
		for _, profile := range sum.Profiles {
			if profile.ID == post.ProfileID {
				continue
			}
			if err := s.engage(ctx, faker, p, profile.ID, post.ID, sum); err != nil {
				return nil, err
			}
		}
	}

	middleware.Logger.InfoContext(ctx, "seeding complete",
		slog.String("preset", p.Name),
		slog.Int("profiles", len(sum.Profiles)),
		slog.Int("published", sum.Published),
		slog.Int("drafts", sum.Drafts),
		slog.Int("likes", sum.Likes),
		slog.Int("bookmarks", sum.Bookmarks),
		slog.Int("comments", sum.Comments),
	)
	return sum, nil
}

// writePost goes through the draft lifecycle so seeding works whatever the
// direct-publish policy.
func (s *Seeder) writePost(ctx context.Context, faker *gofakeit.Faker, p Preset, profileID uint, publish bool) (*models.Post, error) {
	draft, err := s.posts.CreateDraft(ctx, profileID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSuffix(faker.Sentence(faker.Number(3, 8)), ".")
	body := faker.Paragraph(faker.Number(1, 4), 4, 12, "\n\n")
	tags := pickTags(faker, p.Tags, p.MaxTagsPerPost)
	post, err := s.posts.UpdatePost(ctx, profileID, draft.ID, service.PostPatch{
		Title: &title,
		Body:  &body,
		Tags:  &tags,
	})
	if err != nil {
		return nil, fmt.Errorf("post %d: %w", draft.ID, err)
	}
	if !publish {
		return post, nil
	}
	return s.posts.PublishPost(ctx, profileID, post.ID)
}

func (s *Seeder) engage(ctx context.Context, faker *gofakeit.Faker, p Preset, profileID, postID uint, sum *Summary) error {
	if chance(faker, p.LikeProbability) {
		created, err := s.engagement.SetLiked(ctx, profileID, postID)
		if err != nil {
			return fmt.Errorf("like post %d: %w", postID, err)
		}
		if created {
			sum.Likes++
		}
	}
	if chance(faker, p.BookmarkProbability) {
		if _, err := s.engagement.CreateBookmark(ctx, profileID, postID, faker.HackerPhrase()); err != nil {
			if models.ErrorCode(err) != models.CodeConflict {
				return fmt.Errorf("bookmark post %d: %w", postID, err)
			}
		} else {
			sum.Bookmarks++
		}
	}
	if chance(faker, p.CommentProbability) {
		_, err := s.comments.CreateComment(ctx, profileID, service.CreateCommentInput{
			PostID:  postID,
			Content: faker.Sentence(faker.Number(5, 20)),
		})
		if err != nil {
			return fmt.Errorf("comment on post %d: %w", postID, err)
		}
		sum.Comments++
	}
	return nil
}

func chance(faker *gofakeit.Faker, p float64) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	}
	return faker.Float64Range(0, 1) < p
}

func pickTags(faker *gofakeit.Faker, pool []string, limit int) []string {
	if len(pool) == 0 || limit <= 0 {
		return []string{}
	}
	if limit > len(pool) {
		limit = len(pool)
	}
	shuffled := append([]string(nil), pool...)
	faker.ShuffleStrings(shuffled)
	return shuffled[:faker.Number(1, limit)]
}
