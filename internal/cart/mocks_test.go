package cart

import (
	"context"
	"sync"

	"github.com/niravGanatra/uparwala-sub002/internal/domain"
)

type fakeAPI struct {
	mu      sync.Mutex
	cart    domain.Cart
	gets    int
	getErr  error
	mutErr  error
	release chan struct{}
}

func (f *fakeAPI) GetCart(ctx context.Context) (*domain.Cart, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	c := f.cart
	c.Items = append([]domain.CartItem(nil), f.cart.Items...)
	return &c, nil
}

func (f *fakeAPI) AddItem(ctx context.Context, productID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutErr != nil {
		return f.mutErr
	}
	next := int64(len(f.cart.Items) + 100)
	f.cart.Items = append(f.cart.Items, domain.CartItem{ID: next, Product: domain.ProductRef{ID: productID}, Quantity: quantity})
	return nil
}

func (f *fakeAPI) UpdateItem(ctx context.Context, itemID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutErr != nil {
		return f.mutErr
	}
	for i := range f.cart.Items {
		if f.cart.Items[i].ID == itemID {
			f.cart.Items[i].Quantity = quantity
		}
	}
	return nil
}

func (f *fakeAPI) RemoveItem(ctx context.Context, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutErr != nil {
		return f.mutErr
	}
	items := f.cart.Items[:0]
	for _, it := range f.cart.Items {
		if it.ID != itemID {
			items = append(items, it)
		}
	}
	f.cart.Items = items
	return nil
}

func (f *fakeAPI) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}
