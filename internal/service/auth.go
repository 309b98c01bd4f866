package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/stationops/fuelledger/internal/domain"
	"github.com/stationops/fuelledger/internal/store"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// Authenticate checks a username/password pair against the stored bcrypt
// hash. Unknown users and wrong passwords are indistinguishable to the
// caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (domain.UserAccount, error) {
	user, err := s.repo.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.UserAccount{}, ErrInvalidCredentials
		}
		return domain.UserAccount{}, fmt.Errorf("load user: %w", err)
	}
	if !user.Active {
		return domain.UserAccount{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return domain.UserAccount{}, ErrInvalidCredentials
	}
	return user, nil
}
