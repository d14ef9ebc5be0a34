package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jeongwonlab/possync/internal/model"
	"github.com/jeongwonlab/possync/internal/repository"
)

var (
	ErrInvalidDiscountRate = errors.New("discount rate must be between 0 and 100")
	ErrGiftCardNotFound    = errors.New("gift card not found")
	ErrGiftCardUsed        = errors.New("gift card already used")
)

type GiftCardRepository interface {
	Create(ctx context.Context, card *model.GiftCard) (*model.GiftCard, error)
	GetByCode(ctx context.Context, code string) (*model.GiftCard, error)
	MarkUsed(ctx context.Context, code string) error
	List(ctx context.Context, limit, offset int) ([]*model.GiftCard, error)
}

// GiftCardService issues and redeems single-use discount codes. Issue only
// registers the card; the active -> used flip happens when the sale the
// card was applied to completes, over in the payment service.
type GiftCardService struct {
	giftCardRepo GiftCardRepository
}

func NewGiftCardService(giftCardRepo GiftCardRepository) *GiftCardService {
	return &GiftCardService{giftCardRepo: giftCardRepo}
}

func (s *GiftCardService) Issue(ctx context.Context, discountRate int, issuerID string) (*model.GiftCard, error) {
	if discountRate < 0 || discountRate > 100 {
		return nil, ErrInvalidDiscountRate
	}

	const maxDraws = 5
	for i := 0; i < maxDraws; i++ {
		code, err := generateGiftCardCode()
		if err != nil {
			return nil, fmt.Errorf("generate gift card code: %w", err)
		}

		card, err := s.giftCardRepo.Create(ctx, &model.GiftCard{
			Code:         code,
			DiscountRate: discountRate,
			Status:       model.GiftCardActive,
			IssuerID:     issuerID,
			IssuedAt:     time.Now(),
		})
		if err == nil {
			return card, nil
		}
		if errors.Is(err, repository.ErrDuplicateCode) {
			continue
		}
		return nil, fmt.Errorf("store gift card: %w", err)
	}
	return nil, fmt.Errorf("gift card code generation kept colliding")
}

// Redeem validates a code for use in the current sale. The card stays
// active until the sale completes.
func (s *GiftCardService) Redeem(ctx context.Context, code string) (*model.GiftCard, error) {
	card, err := s.giftCardRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrGiftCardNotFound) {
			return nil, ErrGiftCardNotFound
		}
		return nil, fmt.Errorf("look up gift card: %w", err)
	}
	if card.Status != model.GiftCardActive {
		return nil, ErrGiftCardUsed
	}
	return card, nil
}

func (s *GiftCardService) List(ctx context.Context, limit, offset int) ([]*model.GiftCard, error) {
	return s.giftCardRepo.List(ctx, limit, offset)
}

const (
	giftCardLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	giftCardSymbols = "#*+=@"
)

// generateGiftCardCode draws a code like "4821-xKwQzR-#": a numeric
// segment, a mixed-case segment and a symbol, separated by hyphens.
func generateGiftCardCode() (string, error) {
	digits, err := randomDigits(4)
	if err != nil {
		return "", err
	}
	letters, err := randomFrom(giftCardLetters, 6)
	if err != nil {
		return "", err
	}
	symbol, err := randomFrom(giftCardSymbols, 1)
	if err != nil {
		return "", err
	}
	return digits + "-" + letters + "-" + symbol, nil
}

func randomFrom(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[idx.Int64()]
	}
	return string(buf), nil
}
