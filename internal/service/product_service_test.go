package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/domain"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/repository"
)

type stubProductRepo struct {
	items   map[string]domain.Product
	order   []string
	nextID  int
	writes  int
	failErr error
}

func (s *stubProductRepo) Create(_ context.Context, product *domain.Product) error {
	if s.failErr != nil {
		return s.failErr
	}
	if s.items == nil {
		s.items = map[string]domain.Product{}
	}
	s.nextID++
	product.ID = fmt.Sprintf("id-%d", s.nextID)
	s.items[product.ID] = *product
	s.order = append(s.order, product.ID)
	s.writes++
	return nil
}

func (s *stubProductRepo) List(context.Context) ([]domain.Product, error) {
	if s.failErr != nil {
		return nil, s.failErr
	}
	var out []domain.Product
	for _, id := range s.order {
		if p, ok := s.items[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubProductRepo) Update(_ context.Context, product *domain.Product) error {
	if s.failErr != nil {
		return s.failErr
	}
	if _, ok := s.items[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	s.items[product.ID] = *product
	s.writes++
	return nil
}

func (s *stubProductRepo) DeleteByID(_ context.Context, id string) error {
	if s.failErr != nil {
		return s.failErr
	}
	if _, ok := s.items[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(s.items, id)
	s.writes++
	return nil
}

func TestProductServiceCreateThenListRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewProductService(&stubProductRepo{}, nil)

	created, err := svc.Create(ctx, ProductInput{Name: "Pen", Description: "Blue ink", Price: 1.5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.Name != "Pen" || created.Description != "Blue ink" || created.Price != 1.5 {
		t.Fatalf("unexpected created product: %+v", created)
	}

	all, err := svc.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0] != *created {
		t.Fatalf("expected created product in list, got %+v", all)
	}
}

func TestProductServiceListAllEmptyStoreReturnsEmptySlice(t *testing.T) {
	all, err := NewProductService(&stubProductRepo{}, nil).ListAll(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", all)
	}
}

func TestProductServiceUpdateReplacesAllFields(t *testing.T) {
	ctx := context.Background()
	repo := &stubProductRepo{}
	svc := NewProductService(repo, nil)

	created, err := svc.Create(ctx, ProductInput{Name: "Pen", Description: "Blue ink", Price: 1.5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id, err := svc.Update(ctx, created.ID, ProductInput{Name: "Pen", Description: "Red ink", Price: 2.0})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if id != created.ID {
		t.Fatalf("expected update to return %q, got %q", created.ID, id)
	}
	got := repo.items[created.ID]
	want := domain.Product{ID: created.ID, Name: "Pen", Description: "Red ink", Price: 2.0}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestProductServiceUpdateMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	repo := &stubProductRepo{}
	svc := NewProductService(repo, nil)
	if _, err := svc.Create(ctx, ProductInput{Name: "Pen", Price: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	writes := repo.writes

	id, err := svc.Update(ctx, "does-not-exist", ProductInput{Name: "Ghost", Price: 9})
	if err != nil {
		t.Fatalf("expected nil error for missing product, got %v", err)
	}
	if id != "does-not-exist" {
		t.Fatalf("expected id echoed back, got %q", id)
	}
	if repo.writes != writes || len(repo.items) != 1 {
		t.Fatalf("expected store unchanged, writes=%d items=%d", repo.writes, len(repo.items))
	}
}

func TestProductServiceDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := &stubProductRepo{}
	svc := NewProductService(repo, nil)
	created, err := svc.Create(ctx, ProductInput{Name: "Pen", Price: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := repo.items[created.ID]; ok {
		t.Fatal("expected product removed")
	}
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("expected second delete to succeed, got %v", err)
	}
}

func TestProductServicePropagatesStoreFailures(t *testing.T) {
	ctx := context.Background()
	storeDown := errors.New("connection refused")
	svc := NewProductService(&stubProductRepo{failErr: storeDown}, nil)

	if _, err := svc.Create(ctx, ProductInput{Name: "Pen"}); !errors.Is(err, storeDown) {
		t.Fatalf("create: expected wrapped store error, got %v", err)
	}
	if _, err := svc.ListAll(ctx); !errors.Is(err, storeDown) {
		t.Fatalf("list: expected wrapped store error, got %v", err)
	}
	if _, err := svc.Update(ctx, "id-1", ProductInput{}); !errors.Is(err, storeDown) {
		t.Fatalf("update: expected wrapped store error, got %v", err)
	}
	if err := svc.Delete(ctx, "id-1"); !errors.Is(err, storeDown) {
		t.Fatalf("delete: expected wrapped store error, got %v", err)
	}
}

func TestProductServicePenExample(t *testing.T) {
	ctx := context.Background()
	svc := NewProductService(&stubProductRepo{}, nil)

	pen, err := svc.Create(ctx, ProductInput{Name: "Pen", Description: "Blue ink", Price: 1.5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Update(ctx, pen.ID, ProductInput{Name: "Pen", Description: "Red ink", Price: 2.0}); err != nil {
		t.Fatalf("update: %v", err)
	}
	all, _ := svc.ListAll(ctx)
	if len(all) != 1 || all[0].Description != "Red ink" || all[0].Price != 2.0 {
		t.Fatalf("unexpected list after update: %+v", all)
	}
	if err := svc.Delete(ctx, pen.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, _ = svc.ListAll(ctx)
	if len(all) != 0 {
		t.Fatalf("expected empty catalog, got %+v", all)
	}
}
