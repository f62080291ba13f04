package recipient

import (
	"context"
	"errors"
	"testing"

	apperrors "amafaranga/internal/errors"
	"amafaranga/internal/models"
	"amafaranga/internal/repositories"
	"amafaranga/internal/utils/validation"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockDirectory) FindAccountByCardNumber(ctx context.Context, cardNumber string) (*models.Account, error) {
	args := m.Called(ctx, cardNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

type MockCardIndex struct {
	mock.Mock
}

func (m *MockCardIndex) LookupCard(ctx context.Context, cardNumber string) (string, bool, error) {
	args := m.Called(ctx, cardNumber)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockCardIndex) RememberCard(ctx context.Context, cardNumber, accountID string) error {
	args := m.Called(ctx, cardNumber, accountID)
	return args.Error(0)
}

func TestResolve(t *testing.T) {
	account := &models.Account{ID: "acc-1", CardNumber: "1234567890", FullNames: "Recipient"}

	tests := []struct {
		name      string
		card      string
		setupMock func(*MockDirectory, *MockCardIndex)
		want      *models.Account
		wantErr   error
	}{
		{
			name:    "short card number issues no query",
			card:    "123456789",
			wantErr: apperrors.ErrIncompleteCardNumber,
		},
		{
			name:    "non digit card number issues no query",
			card:    "12345678a0",
			wantErr: apperrors.ErrIncompleteCardNumber,
		},
		{
			name: "unknown card",
			card: "9999999999",
			setupMock: func(d *MockDirectory, i *MockCardIndex) {
				i.On("LookupCard", mock.Anything, "9999999999").Return("", false, nil)
				d.On("FindAccountByCardNumber", mock.Anything, "9999999999").Return(nil, repositories.ErrNotFound)
			},
			wantErr: apperrors.ErrRecipientNotFound,
		},
		{
			name: "cache miss queries and remembers",
			card: "1234567890",
			setupMock: func(d *MockDirectory, i *MockCardIndex) {
				i.On("LookupCard", mock.Anything, "1234567890").Return("", false, nil)
				d.On("FindAccountByCardNumber", mock.Anything, "1234567890").Return(account, nil)
				i.On("RememberCard", mock.Anything, "1234567890", "acc-1").Return(nil)
			},
			want: account,
		},
		{
			name: "cache hit reads account by id",
			card: "1234567890",
			setupMock: func(d *MockDirectory, i *MockCardIndex) {
				i.On("LookupCard", mock.Anything, "1234567890").Return("acc-1", true, nil)
				d.On("GetAccount", mock.Anything, "acc-1").Return(account, nil)
			},
			want: account,
		},
		{
			name: "cache failure falls back to query",
			card: "1234567890",
			setupMock: func(d *MockDirectory, i *MockCardIndex) {
				i.On("LookupCard", mock.Anything, "1234567890").Return("", false, errors.New("redis down"))
				d.On("FindAccountByCardNumber", mock.Anything, "1234567890").Return(account, nil)
				i.On("RememberCard", mock.Anything, "1234567890", "acc-1").Return(errors.New("redis down"))
			},
			want: account,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := new(MockDirectory)
			index := new(MockCardIndex)
			if tt.setupMock != nil {
				tt.setupMock(dir, index)
			}

			r := NewResolver(dir, index, zerolog.Nop())
			got, err := r.Resolve(context.Background(), tt.card)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want.ID, got.ID)
			}
			if tt.setupMock == nil {
				dir.AssertNotCalled(t, "FindAccountByCardNumber", mock.Anything, mock.Anything)
				index.AssertNotCalled(t, "LookupCard", mock.Anything, mock.Anything)
			}
			dir.AssertExpectations(t)
			index.AssertExpectations(t)
		})
	}
}

func TestResolveWithoutIndex(t *testing.T) {
	dir := new(MockDirectory)
	dir.On("FindAccountByCardNumber", mock.Anything, "1234567890").Return(nil, errors.New("connection refused"))

	_, err := NewResolver(dir, nil, zerolog.Nop()).Resolve(context.Background(), "1234567890")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrRecipientNotFound)
}

func TestGenerateCardNumber(t *testing.T) {
	for i := 0; i < 50; i++ {
		card, err := GenerateCardNumber()
		require.NoError(t, err)
		assert.True(t, validation.IsCardNumber(card), card)
		assert.NotEqual(t, byte('0'), card[0])
	}
}
