package application

import (
	"errors"
	"fmt"

	"github.com/averos/fleamarket/internal/domains/orders/domain"
)

// ErrInvalidInput signals the request violated a domain invariant.
var ErrInvalidInput = errors.New("invalid order input")

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidQuantity) || errors.Is(err, domain.ErrInvalidPrice) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
