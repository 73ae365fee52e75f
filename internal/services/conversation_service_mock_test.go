package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"conversation-service/internal/apperr"
	"conversation-service/internal/mocks"
	"conversation-service/internal/models"
	"conversation-service/internal/repositories"
	"conversation-service/internal/services"
)

func TestFindOrCreateResolvesLostInsertRace(t *testing.T) {
	convs := new(mocks.ConversationRepositoryMock)
	winner := models.Conversation{ID: 7, UUID: uuid.New(), ListingID: 1, BuyerID: buyer, SellerID: seller}

	convs.On("FindByParticipants", mock.Anything, int64(1), buyer, seller).
		Return(models.Conversation{}, repositories.ErrConversationNotFound).Once()
	convs.On("Create", mock.Anything, mock.AnythingOfType("*models.Conversation")).
		Return(repositories.ErrConversationExists).Once()
	convs.On("FindByParticipants", mock.Anything, int64(1), buyer, seller).
		Return(winner, nil).Once()

	svc := services.NewConversationService(convs, new(mocks.MessageRepositoryMock), new(mocks.ListingCatalogMock), nil)
	conv, err := svc.FindOrCreate(context.Background(), 1, buyer, seller)

	require.NoError(t, err)
	assert.Equal(t, winner.UUID, conv.UUID)
	convs.AssertExpectations(t)
}

func TestFindOrCreateHidesStorageErrors(t *testing.T) {
	convs := new(mocks.ConversationRepositoryMock)
	convs.On("FindByParticipants", mock.Anything, int64(1), buyer, seller).
		Return(models.Conversation{}, errors.New("connection refused"))

	svc := services.NewConversationService(convs, new(mocks.MessageRepositoryMock), new(mocks.ListingCatalogMock), nil)
	_, err := svc.FindOrCreate(context.Background(), 1, buyer, seller)

	assert.True(t, apperr.Is(err, apperr.KindInternal))
	assert.Equal(t, "internal error", apperr.MessageOf(err))
}

func TestStartNotifiesAndToleratesContactCounterFailure(t *testing.T) {
	convs := new(mocks.ConversationRepositoryMock)
	msgs := new(mocks.MessageRepositoryMock)
	listings := new(mocks.ListingCatalogMock)
	notifier := new(mocks.NotifierMock)
	existing := models.Conversation{ID: 3, UUID: uuid.New(), ListingID: 5, BuyerID: buyer, SellerID: seller}

	listings.On("GetListing", mock.Anything, int64(5)).
		Return(models.Listing{ID: 5, UserID: seller, Status: models.ListingStatusActive}, nil)
	listings.On("IncrementContacts", mock.Anything, int64(5)).Return(errors.New("deadlock"))
	convs.On("FindByParticipants", mock.Anything, int64(5), buyer, seller).Return(existing, nil)
	msgs.On("Create", mock.Anything, existing, mock.AnythingOfType("*models.Message")).Return(nil)
	notifier.On("MessageCreated", mock.Anything, mock.AnythingOfType("models.Conversation"), mock.MatchedBy(func(m models.Message) bool {
		return m.Body == "Still available?" && m.SenderID == buyer
	})).Once()

	svc := services.NewConversationService(convs, msgs, listings, notifier)
	conv, msg, err := svc.Start(context.Background(), buyer, 5, "  Still available?  ")

	require.NoError(t, err)
	assert.Equal(t, existing.UUID, conv.UUID)
	assert.Equal(t, models.MessageTypeText, msg.Type)
	notifier.AssertExpectations(t)
	listings.AssertExpectations(t)
}

func TestRespondToOfferLostRaceIsInvalidState(t *testing.T) {
	convs := new(mocks.ConversationRepositoryMock)
	msgs := new(mocks.MessageRepositoryMock)
	notifier := new(mocks.NotifierMock)
	status := models.OfferPending
	amount := 250.0
	offerMsg := models.Message{ID: 9, UUID: uuid.New(), ConversationID: 3, SenderID: seller,
		Body: "250?", Type: models.MessageTypeOffer, OfferAmount: &amount, OfferStatus: &status}

	msgs.On("GetByUUID", mock.Anything, offerMsg.UUID, false).Return(offerMsg, nil)
	convs.On("GetByID", mock.Anything, int64(3)).
		Return(models.Conversation{ID: 3, BuyerID: buyer, SellerID: seller}, nil)
	msgs.On("RespondToOffer", mock.Anything, offerMsg, models.OfferAccepted, mock.AnythingOfType("*models.Message")).
		Return(repositories.ErrOfferNotPending)

	svc := services.NewConversationService(convs, msgs, new(mocks.ListingCatalogMock), notifier)
	_, _, err := svc.RespondToOffer(context.Background(), buyer, offerMsg.UUID, "accept")

	assert.True(t, apperr.Is(err, apperr.KindInvalidOfferState))
	notifier.AssertNotCalled(t, "OfferResponded", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
