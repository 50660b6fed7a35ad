package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"chatter/application/ports"
	"chatter/domain/core/entities"
	"chatter/domain/core/valueobjects"
	"chatter/infrastructure/persistence"
	pkgerrors "chatter/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	preferenceEntityType = "PREFERENCE"
	preferenceSKPrefix   = "PREF#"

	// BatchGetItem accepts at most 100 keys per call
	maxBatchGetKeys = 100
)

// preferenceItem holds the fixed attributes of a preference item. Edge
// weights live in top-level C#<key> attributes so UpdateItem can ADD to them.
type preferenceItem struct {
	PK             string `dynamodbav:"PK"`
	SK             string `dynamodbav:"SK"`
	EntityType     string `dynamodbav:"EntityType"`
	PreferenceID   string `dynamodbav:"PreferenceID"`
	Category       string `dynamodbav:"Category"`
	Popularity     int64  `dynamodbav:"Popularity"`
	Version        int64  `dynamodbav:"Version"`
	LastModifiedBy string `dynamodbav:"LastModifiedBy,omitempty"`
}

// PreferenceGraph implements ports.PreferenceGraph on DynamoDB
type PreferenceGraph struct {
	client    Client
	tableName string
	logger    *zap.Logger
}

// NewPreferenceGraph creates a new PreferenceGraph
func NewPreferenceGraph(client Client, tableName string, logger *zap.Logger) *PreferenceGraph {
	return &PreferenceGraph{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

var _ ports.PreferenceGraph = (*PreferenceGraph)(nil)

func categoryPK(category valueobjects.Category) string {
	return "CATEGORY#" + category.String()
}

func preferenceSK(id string) string {
	return preferenceSKPrefix + id
}

func preferenceKeyAttributes(key valueobjects.PreferenceKey) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: categoryPK(key.Category())},
		attrSK: &types.AttributeValueMemberS{Value: preferenceSK(key.ID())},
	}
}

// GetPreference retrieves a preference by key
func (r *PreferenceGraph) GetPreference(ctx context.Context, key valueobjects.PreferenceKey) (*entities.Preference, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            preferenceKeyAttributes(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("GetPreference", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError("preference " + key.String())
	}

	return r.toDomain(result.Item)
}

// GetPreferences reads keys with BatchGetItem, retrying unprocessed keys.
// The result follows the order of keys and skips absent records.
func (r *PreferenceGraph) GetPreferences(ctx context.Context, keys []valueobjects.PreferenceKey) ([]*entities.Preference, error) {
	found := make(map[valueobjects.PreferenceKey]*entities.Preference, len(keys))
	seen := make(map[valueobjects.PreferenceKey]bool, len(keys))

	var pending []map[string]types.AttributeValue
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true
		pending = append(pending, preferenceKeyAttributes(key))
	}

	for start := 0; start < len(pending); start += maxBatchGetKeys {
		end := start + maxBatchGetKeys
		if end > len(pending) {
			end = len(pending)
		}

		request := map[string]types.KeysAndAttributes{
			r.tableName: {Keys: pending[start:end], ConsistentRead: aws.Bool(true)},
		}
		for len(request) > 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			result, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, pkgerrors.NewDatabaseError("GetPreferences", err)
			}
			for _, item := range result.Responses[r.tableName] {
				pref, err := r.toDomain(item)
				if err != nil {
					return nil, err
				}
				found[pref.Key()] = pref
			}
			request = result.UnprocessedKeys
		}
	}

	out := make([]*entities.Preference, 0, len(found))
	for _, key := range keys {
		if pref, ok := found[key]; ok {
			out = append(out, pref)
			delete(found, key)
		}
	}
	return out, nil
}

// PutPreference overwrites the whole item, dropping its fingerprint. The
// item takes pref's version as is.
func (r *PreferenceGraph) PutPreference(ctx context.Context, pref *entities.Preference) error {
	if pref == nil {
		return pkgerrors.NewValidationError("preference is required")
	}

	item, err := r.toItem(pref)
	if err != nil {
		return err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("PutPreference", err)
	}
	return nil
}

// DeletePreference removes a preference item
func (r *PreferenceGraph) DeletePreference(ctx context.Context, key valueobjects.PreferenceKey) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       preferenceKeyAttributes(key),
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("DeletePreference", err)
	}
	return nil
}

// UpdatePreference ADDs every delta in req, bumps the version and records
// the update fingerprint in the same conditional write. The item comes back
// as the write left it. A write whose fingerprint matches the stored one
// fails the condition and maps to ErrMutationAlreadyApplied.
func (r *PreferenceGraph) UpdatePreference(ctx context.Context, req *entities.UpdateRequest, actingUserID string, action valueobjects.UpdateAction) (*entities.Preference, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	key := req.Target().Key()
	fingerprint := persistence.Fingerprint(actingUserID, req, action)

	input, err := r.buildUpdate(key, req, fingerprint)
	if err != nil {
		return nil, err
	}

	result, err := r.client.UpdateItem(ctx, input)
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			r.logger.Debug("Skipping duplicate preference update",
				zap.String("preference", key.String()),
				zap.String("fingerprint", fingerprint),
			)
			return nil, pkgerrors.ErrMutationAlreadyApplied
		}
		return nil, pkgerrors.NewDatabaseError("UpdatePreference", err)
	}

	updated, err := r.toDomain(result.Attributes)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Preference updated",
		zap.String("preference", key.String()),
		zap.String("fingerprint", fingerprint),
		zap.Int64("version", updated.Version()),
	)
	return updated, nil
}

func (r *PreferenceGraph) buildUpdate(key valueobjects.PreferenceKey, req *entities.UpdateRequest, fingerprint string) (*dynamodb.UpdateItemInput, error) {
	lastModified := expression.Name(persistence.AttrLastModifiedBy)

	update := expression.
		Set(lastModified, expression.Value(fingerprint)).
		Set(expression.Name("EntityType"), expression.Value(preferenceEntityType)).
		Set(expression.Name("PreferenceID"), expression.Value(key.ID())).
		Set(expression.Name("Category"), expression.Value(key.Category().String()))

	update = update.Add(expression.Name(persistence.AttrVersion), expression.Value(1))
	if delta, ok := req.PopularityDelta(); ok {
		update = update.Add(expression.Name(persistence.AttrPopularity), expression.Value(delta))
	}
	for _, dest := range req.CorrelatedKeys() {
		delta, _ := req.CorrelationDelta(dest)
		// IDs may contain dots, which must not be read as a document path
		update = update.Add(expression.NameNoDotSplit(persistence.CorrelationAttribute(dest)), expression.Value(delta))
	}

	condition := expression.Or(
		expression.AttributeNotExists(lastModified),
		lastModified.NotEqual(expression.Value(fingerprint)),
	)

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(condition).Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to build update expression").WithCause(err)
	}

	return &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       preferenceKeyAttributes(key),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	}, nil
}

// BatchGetPreferences pages through a category partition with Query
func (r *PreferenceGraph) BatchGetPreferences(category valueobjects.Category, batchSize int) ports.PreferenceBatchIterator {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &queryIterator{graph: r, category: category, batchSize: batchSize}
}

type queryIterator struct {
	graph     *PreferenceGraph
	category  valueobjects.Category
	batchSize int
	startKey  map[string]types.AttributeValue
	done      bool
}

func (it *queryIterator) Next(ctx context.Context) ([]*entities.Preference, bool, error) {
	// A page can come back empty with a LastEvaluatedKey when the partition
	// size is a multiple of the limit
	for !it.done {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		input, err := it.graph.buildQuery(it.category, it.batchSize, it.startKey)
		if err != nil {
			return nil, false, err
		}
		result, err := it.graph.client.Query(ctx, input)
		if err != nil {
			return nil, false, pkgerrors.NewDatabaseError("BatchGetPreferences", err)
		}

		it.startKey = result.LastEvaluatedKey
		it.done = len(result.LastEvaluatedKey) == 0

		if len(result.Items) == 0 {
			continue
		}
		page := make([]*entities.Preference, 0, len(result.Items))
		for _, item := range result.Items {
			pref, err := it.graph.toDomain(item)
			if err != nil {
				return nil, false, err
			}
			page = append(page, pref)
		}
		return page, true, nil
	}
	return nil, false, nil
}

func (r *PreferenceGraph) buildQuery(category valueobjects.Category, limit int, startKey map[string]types.AttributeValue) (*dynamodb.QueryInput, error) {
	keyCond := expression.Key(attrPK).Equal(expression.Value(categoryPK(category))).
		And(expression.KeyBeginsWith(expression.Key(attrSK), preferenceSKPrefix))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to build query expression").WithCause(err)
	}

	return &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(int32(limit)),
		ExclusiveStartKey:         startKey,
	}, nil
}

func (r *PreferenceGraph) toItem(pref *entities.Preference) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(preferenceItem{
		PK:           categoryPK(pref.Category()),
		SK:           preferenceSK(pref.ID()),
		EntityType:   preferenceEntityType,
		PreferenceID: pref.ID(),
		Category:     pref.Category().String(),
		Popularity:   pref.Popularity(),
		Version:      pref.Version(),
	})
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to marshal preference").WithCause(err)
	}

	for dest, weight := range pref.Correlations() {
		item[persistence.CorrelationAttribute(dest)] = &types.AttributeValueMemberN{
			Value: strconv.FormatInt(weight, 10),
		}
	}
	return item, nil
}

func (r *PreferenceGraph) toDomain(item map[string]types.AttributeValue) (*entities.Preference, error) {
	var fixed preferenceItem
	if err := attributevalue.UnmarshalMap(item, &fixed); err != nil {
		return nil, pkgerrors.NewInternalError("failed to unmarshal preference").WithCause(err)
	}

	category, err := valueobjects.ParseCategory(fixed.Category)
	if err != nil {
		return nil, err
	}
	key, err := valueobjects.NewPreferenceKey(fixed.PreferenceID, category)
	if err != nil {
		return nil, err
	}

	correlations := make(map[valueobjects.PreferenceKey]int64)
	for name, value := range item {
		dest, ok := persistence.ParseCorrelationAttribute(name)
		if !ok {
			continue
		}
		var weight int64
		if err := attributevalue.Unmarshal(value, &weight); err != nil {
			return nil, pkgerrors.NewInternalError(fmt.Sprintf("invalid weight in %s", name)).WithCause(err)
		}
		correlations[dest] = weight
	}

	return entities.ReconstructPreference(key, fixed.Popularity, correlations).WithVersion(fixed.Version), nil
}
