package service

import (
	"context"
	"net/http"

	"github.com/niravGanatra/uparwala-sub002/internal/domain"
	"github.com/niravGanatra/uparwala-sub002/internal/retry"
)

type Banner struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	ImageURL string `json:"image_url"`
	LinkURL  string `json:"link_url,omitempty"`
	Position int    `json:"position"`
	IsActive bool   `json:"is_active"`
}

type Section struct {
	ID       int64               `json:"id"`
	Title    string              `json:"title"`
	Kind     string              `json:"section_type"`
	Position int                 `json:"position"`
	Products []domain.ProductRef `json:"products,omitempty"`
}

type HomepageService struct{ base }

func NewHomepageService(api Doer, rc retry.Config) *HomepageService {
	return &HomepageService{base{api: api, retry: rc}}
}

func (s *HomepageService) Banners(ctx context.Context) ([]Banner, error) {
	var out list[Banner]
	if err := s.read(ctx, "/homepage/banners/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HomepageService) Sections(ctx context.Context) ([]Section, error) {
	var out list[Section]
	if err := s.read(ctx, "/homepage/sections/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HomepageService) FeaturedProducts(ctx context.Context) ([]domain.ProductRef, error) {
	var out list[domain.ProductRef]
	if err := s.read(ctx, "/homepage/featured-products/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HomepageService) CreateBanner(ctx context.Context, b Banner) (*Banner, error) {
	var out Banner
	if err := s.write(ctx, http.MethodPost, "/homepage/banners/", b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *HomepageService) UpdateBanner(ctx context.Context, b Banner) (*Banner, error) {
	var out Banner
	if err := s.write(ctx, http.MethodPut, itemPath("/homepage/banners/%d/", b.ID), b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *HomepageService) DeleteBanner(ctx context.Context, id int64) error {
	return s.write(ctx, http.MethodDelete, itemPath("/homepage/banners/%d/", id), nil, nil)
}
