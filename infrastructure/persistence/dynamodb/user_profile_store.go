package dynamodb

import (
	"context"
	"sort"
	"time"

	"chatter/application/ports"
	"chatter/domain/core/entities"
	"chatter/domain/core/valueobjects"
	pkgerrors "chatter/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	profileEntityType = "USER_PROFILE"
	profileSK         = "PROFILE"
	attrPreferences   = "Preferences"
)

// profileItem is the DynamoDB shape of a user profile. Preferences maps a
// category to a string set of preference IDs.
type profileItem struct {
	PK          string              `dynamodbav:"PK"`
	SK          string              `dynamodbav:"SK"`
	EntityType  string              `dynamodbav:"EntityType"`
	UserID      string              `dynamodbav:"UserID"`
	Preferences map[string][]string `dynamodbav:"Preferences,omitempty"`
	UpdatedAt   string              `dynamodbav:"UpdatedAt"`
}

// UserProfileStore implements ports.UserProfileStore on DynamoDB
type UserProfileStore struct {
	client    Client
	tableName string
	logger    *zap.Logger
}

// NewUserProfileStore creates a new UserProfileStore
func NewUserProfileStore(client Client, tableName string, logger *zap.Logger) *UserProfileStore {
	return &UserProfileStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

var _ ports.UserProfileStore = (*UserProfileStore)(nil)

func profileKey(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: "USER#" + userID},
		attrSK: &types.AttributeValueMemberS{Value: profileSK},
	}
}

// GetProfile loads a profile, NOT_FOUND when the user has none
func (s *UserProfileStore) GetProfile(ctx context.Context, userID string) (*entities.UserProfile, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            profileKey(userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("GetProfile", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError("profile for user " + userID)
	}

	var item profileItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, pkgerrors.NewInternalError("failed to unmarshal profile").WithCause(err)
	}

	profile, err := entities.NewUserProfile(item.UserID)
	if err != nil {
		return nil, err
	}
	for name, ids := range item.Preferences {
		category, err := valueobjects.ParseCategory(name)
		if err != nil {
			s.logger.Warn("Skipping unknown category in profile",
				zap.String("userID", userID),
				zap.String("category", name),
			)
			continue
		}
		for _, id := range ids {
			key, err := valueobjects.NewPreferenceKey(id, category)
			if err != nil {
				return nil, err
			}
			profile.AddPreferenceKey(key)
		}
	}
	return profile, nil
}

// SaveProfile overwrites the profile item
func (s *UserProfileStore) SaveProfile(ctx context.Context, profile *entities.UserProfile) error {
	if profile == nil {
		return pkgerrors.NewValidationError("profile is required")
	}

	item, err := attributevalue.MarshalMap(profileItem{
		PK:         "USER#" + profile.UserID(),
		SK:         profileSK,
		EntityType: profileEntityType,
		UserID:     profile.UserID(),
		UpdatedAt:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return pkgerrors.NewInternalError("failed to marshal profile").WithCause(err)
	}

	// String sets cannot be empty, so categories without preferences are left out
	sets := make(map[string]types.AttributeValue)
	for _, category := range profile.Categories() {
		var ids []string
		for _, key := range profile.KeysIn(category) {
			ids = append(ids, key.ID())
		}
		if len(ids) == 0 {
			continue
		}
		sort.Strings(ids)
		sets[category.String()] = &types.AttributeValueMemberSS{Value: ids}
	}
	if len(sets) > 0 {
		item[attrPreferences] = &types.AttributeValueMemberM{Value: sets}
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("SaveProfile", err)
	}
	return nil
}

// DeleteProfile removes the profile item
func (s *UserProfileStore) DeleteProfile(ctx context.Context, userID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       profileKey(userID),
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("DeleteProfile", err)
	}
	return nil
}
