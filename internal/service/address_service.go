package service

import (
	"context"
	"strings"

	"github.com/Varun5711/clubhouse/internal/logger"
	"github.com/Varun5711/clubhouse/internal/models"
	"github.com/Varun5711/clubhouse/internal/storage"
	"github.com/Varun5711/clubhouse/internal/validation"
)

type AddressService struct {
	store storage.AddressStore
	log   *logger.Logger
}

func NewAddressService(store storage.AddressStore, log *logger.Logger) *AddressService {
	return &AddressService{
		store: store,
		log:   log.With("address"),
	}
}

func (s *AddressService) addressFromInput(in *models.AddressInput, actor *Actor) (*models.Address, error) {
	in.MemberID = strings.ToUpper(strings.TrimSpace(in.MemberID))
	if in.MemberID == "" && actor != nil {
		in.MemberID = actor.MemberID
	}
	if !actor.CanAccess(in.MemberID) {
		return nil, ErrForbidden
	}
	if err := validation.Struct(in); err != nil {
		return nil, invalidInput(err)
	}
	return in.ToAddress(), nil
}

func (s *AddressService) Create(ctx context.Context, in *models.AddressInput, actor *Actor) (*models.CreatedResource, error) {
	address, err := s.addressFromInput(in, actor)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateAddress(ctx, address); err != nil {
		return nil, storeError("create address", err)
	}
	return &models.CreatedResource{ID: address.ID}, nil
}

func (s *AddressService) Get(ctx context.Context, memberID string, actor *Actor) (*models.Address, error) {
	memberID = strings.ToUpper(strings.TrimSpace(memberID))
	if !actor.CanAccess(memberID) {
		return nil, ErrForbidden
	}

	address, err := s.store.GetAddressByMember(ctx, memberID)
	if err != nil {
		return nil, storeError("get address", err)
	}
	if address == nil {
		return nil, ErrNotFound
	}
	return address, nil
}

func (s *AddressService) Update(ctx context.Context, in *models.AddressInput, actor *Actor) error {
	address, err := s.addressFromInput(in, actor)
	if err != nil {
		return err
	}

	ok, err := s.store.UpdateAddressByMember(ctx, address)
	if err != nil {
		return storeError("update address", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *AddressService) Delete(ctx context.Context, memberID string, actor *Actor) error {
	memberID = strings.ToUpper(strings.TrimSpace(memberID))
	if !actor.CanAccess(memberID) {
		return ErrForbidden
	}

	ok, err := s.store.DeleteAddressByMember(ctx, memberID)
	if err != nil {
		return storeError("delete address", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
