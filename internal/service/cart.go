package service

import (
	"context"
	"net/http"

	"github.com/niravGanatra/uparwala-sub002/internal/domain"
	"github.com/niravGanatra/uparwala-sub002/internal/retry"
)

type CartService struct{ base }

func NewCartService(api Doer, rc retry.Config) *CartService {
	return &CartService{base{api: api, retry: rc}}
}

func (s *CartService) GetCart(ctx context.Context) (*domain.Cart, error) {
	var cart domain.Cart
	if err := s.read(ctx, "/orders/cart/", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

type addItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (s *CartService) AddItem(ctx context.Context, productID int64, quantity int) error {
	return s.write(ctx, http.MethodPost, "/orders/cart/add/", addItemRequest{ProductID: productID, Quantity: quantity}, nil)
}

func (s *CartService) UpdateItem(ctx context.Context, itemID int64, quantity int) error {
	return s.write(ctx, http.MethodPatch, itemPath("/orders/cart/items/%d/", itemID), quantityRequest{Quantity: quantity}, nil)
}

func (s *CartService) RemoveItem(ctx context.Context, itemID int64) error {
	return s.write(ctx, http.MethodDelete, itemPath("/orders/cart/items/%d/", itemID), nil, nil)
}
