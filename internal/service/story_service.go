package service

import (
	"context"
	"strings"

	"brokenweave/internal/model"
	"brokenweave/internal/session"
	"brokenweave/internal/validate"
)

type StoryService struct {
	stories   StoryStore
	validator *validate.Validator
}

func NewStoryService(stories StoryStore, v *validate.Validator) *StoryService {
	return &StoryService{stories: stories, validator: v}
}

func (s *StoryService) Create(ctx context.Context, sess *session.Session, in StoryInput) (*model.SuccessStory, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	story := fromStoryInput(in)
	if sess != nil {
		story.CreatedBy = sess.UserID
	}
	if err := s.stories.Create(ctx, story); err != nil {
		return nil, err
	}
	return story, nil
}

func (s *StoryService) Update(ctx context.Context, id int64, in StoryInput) (*model.SuccessStory, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	story := fromStoryInput(in)
	story.ID = id
	if err := s.stories.Update(ctx, story); err != nil {
		return nil, err
	}
	return story, nil
}

func (s *StoryService) Delete(ctx context.Context, id int64) error {
	return s.stories.Delete(ctx, id)
}

// Published lists the stories visible on the public site.
func (s *StoryService) Published(ctx context.Context) ([]model.SuccessStory, error) {
	return s.stories.List(ctx, true)
}

func (s *StoryService) List(ctx context.Context) ([]model.SuccessStory, error) {
	return s.stories.List(ctx, false)
}

func fromStoryInput(in StoryInput) *model.SuccessStory {
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "reunion"
	}
	return &model.SuccessStory{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Content:     in.Content,
		Category:    category,
		IsPublished: in.IsPublished,
	}
}
