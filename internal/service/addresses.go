package service

import (
	"context"
	"net/http"

	"github.com/niravGanatra/uparwala-sub002/internal/domain"
	"github.com/niravGanatra/uparwala-sub002/internal/retry"
)

type AddressService struct{ base }

func NewAddressService(api Doer, rc retry.Config) *AddressService {
	return &AddressService{base{api: api, retry: rc}}
}

func (s *AddressService) ListAddresses(ctx context.Context) ([]domain.Address, error) {
	var out list[domain.Address]
	if err := s.read(ctx, "/users/addresses/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AddressService) CreateAddress(ctx context.Context, a domain.Address) (*domain.Address, error) {
	var out domain.Address
	if err := s.write(ctx, http.MethodPost, "/users/addresses/", a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
