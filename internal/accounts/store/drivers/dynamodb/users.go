package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const codeConditionalCheckFailed = "ConditionalCheckFailed"

type usersRepo struct {
	client API
	table  string
}

func (r *usersRepo) Get(ctx context.Context, id string) (store.Record, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            keyOf(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return store.Record{}, fmt.Errorf("dynamodb: get user: %w", err)
	}
	if out.Item == nil {
		return store.Record{}, store.ErrNotFound
	}

	var it userItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return store.Record{}, fmt.Errorf("dynamodb: decode user: %w", err)
	}
	if it.Kind != kindUser {
		return store.Record{}, store.ErrNotFound
	}
	return it.record(), nil
}

func (r *usersRepo) Insert(ctx context.Context, rec store.Record) error {
	item, err := attributevalue.MarshalMap(fromRecord(rec))
	if err != nil {
		return fmt.Errorf("dynamodb: encode user: %w", err)
	}

	notExists, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(attrID))).
		Build()
	if err != nil {
		return fmt.Errorf("dynamodb: build condition: %w", err)
	}

	items := []types.TransactWriteItem{{Put: r.put(item, notExists)}}
	for _, g := range []string{usernameGuard(rec.SearchUsername), emailGuard(rec.SearchEmail)} {
		put, err := r.guardPut(g, rec.ID, notExists)
		if err != nil {
			return err
		}
		items = append(items, types.TransactWriteItem{Put: put})
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if reasons, ok := cancellation(err); ok {
		for _, reason := range reasons {
			if aws.ToString(reason.Code) == codeConditionalCheckFailed {
				return fmt.Errorf("dynamodb: insert user: %w", store.ErrAlreadyExists)
			}
		}
	}
	if err != nil {
		return fmt.Errorf("dynamodb: insert user: %w", err)
	}
	return nil
}

func (r *usersRepo) Update(ctx context.Context, id string, a store.Attributes) error {
	upd := expression.Set(expression.Name(attrUpdatedAt), expression.Value(a.UpdatedAt.UTC()))
	if a.ProfileInfo != nil {
		info := *a.ProfileInfo
		if info.Tags == nil {
			info.Tags = []string{}
		}
		upd = upd.Set(expression.Name(attrProfileInfo), expression.Value(info))
	}
	if a.PasswordHash != nil {
		upd = upd.Set(expression.Name(attrPassword), expression.Value(*a.PasswordHash))
	}
	cond := expression.AttributeExists(expression.Name(attrID))

	if a.Account == nil {
		expr, err := expression.NewBuilder().WithUpdate(upd).WithCondition(cond).Build()
		if err != nil {
			return fmt.Errorf("dynamodb: build update: %w", err)
		}
		_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(r.table),
			Key:                       keyOf(id),
			UpdateExpression:          expr.Update(),
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("dynamodb: update user: %w", err)
		}
		return nil
	}

	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	acct := a.Account
	upd = upd.
		Set(expression.Name(attrUsername), expression.Value(acct.Username)).
		Set(expression.Name(attrSearchUsername), expression.Value(acct.SearchUsername)).
		Set(expression.Name(attrEmail), expression.Value(acct.Email)).
		Set(expression.Name(attrSearchEmail), expression.Value(acct.SearchEmail)).
		Set(expression.Name(attrFirstname), expression.Value(acct.Firstname)).
		Set(expression.Name(attrLastname), expression.Value(acct.Lastname))

	// The user item must still own the guards we are about to release.
	cond = cond.And(
		expression.Name(attrSearchUsername).Equal(expression.Value(current.SearchUsername)),
		expression.Name(attrSearchEmail).Equal(expression.Value(current.SearchEmail)),
	)

	expr, err := expression.NewBuilder().WithUpdate(upd).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("dynamodb: build update: %w", err)
	}

	items := []types.TransactWriteItem{{Update: &types.Update{
		TableName:                           aws.String(r.table),
		Key:                                 keyOf(id),
		UpdateExpression:                    expr.Update(),
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}}}

	swaps := []struct{ old, new string }{}
	if acct.SearchUsername != current.SearchUsername {
		swaps = append(swaps, struct{ old, new string }{usernameGuard(current.SearchUsername), usernameGuard(acct.SearchUsername)})
	}
	if acct.SearchEmail != current.SearchEmail {
		swaps = append(swaps, struct{ old, new string }{emailGuard(current.SearchEmail), emailGuard(acct.SearchEmail)})
	}
	if len(swaps) > 0 {
		notExists, err := expression.NewBuilder().
			WithCondition(expression.AttributeNotExists(expression.Name(attrID))).
			Build()
		if err != nil {
			return fmt.Errorf("dynamodb: build condition: %w", err)
		}
		for _, s := range swaps {
			put, err := r.guardPut(s.new, id, notExists)
			if err != nil {
				return err
			}
			items = append(items,
				types.TransactWriteItem{Put: put},
				types.TransactWriteItem{Delete: &types.Delete{TableName: aws.String(r.table), Key: keyOf(s.old)}},
			)
		}
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if reasons, ok := cancellation(err); ok {
		if len(reasons) > 0 && aws.ToString(reasons[0].Code) == codeConditionalCheckFailed && reasons[0].Item == nil {
			return store.ErrNotFound
		}
		return fmt.Errorf("dynamodb: update user: %w", store.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("dynamodb: update user: %w", err)
	}
	return nil
}

func (r *usersRepo) Delete(ctx context.Context, id string) error {
	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	exists, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name(attrID))).
		Build()
	if err != nil {
		return fmt.Errorf("dynamodb: build condition: %w", err)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName:                aws.String(r.table),
				Key:                      keyOf(id),
				ConditionExpression:      exists.Condition(),
				ExpressionAttributeNames: exists.Names(),
			}},
			{Delete: &types.Delete{TableName: aws.String(r.table), Key: keyOf(usernameGuard(current.SearchUsername))}},
			{Delete: &types.Delete{TableName: aws.String(r.table), Key: keyOf(emailGuard(current.SearchEmail))}},
		},
	})
	if _, ok := cancellation(err); ok {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("dynamodb: delete user: %w", err)
	}
	return nil
}

func (r *usersRepo) Scan(ctx context.Context, f store.Filter) ([]store.Record, error) {
	expr, err := scanExpression(f)
	if err != nil {
		return nil, err
	}

	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.table),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})

	out := []store.Record{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamodb: scan users: %w", err)
		}
		var items []userItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("dynamodb: decode users: %w", err)
		}
		for _, it := range items {
			out = append(out, it.record())
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *usersRepo) Count(ctx context.Context) (int, error) {
	expr, err := scanExpression(store.Filter{})
	if err != nil {
		return 0, err
	}

	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.table),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Select:                    types.SelectCount,
		ConsistentRead:            aws.Bool(true),
	})

	total := 0
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("dynamodb: count users: %w", err)
		}
		total += int(page.Count)
	}
	return total, nil
}

func (r *usersRepo) put(item map[string]types.AttributeValue, cond expression.Expression) *types.Put {
	return &types.Put{
		TableName:                 aws.String(r.table),
		Item:                      item,
		ConditionExpression:       cond.Condition(),
		ExpressionAttributeNames:  cond.Names(),
		ExpressionAttributeValues: cond.Values(),
	}
}

func (r *usersRepo) guardPut(id, owner string, cond expression.Expression) (*types.Put, error) {
	item, err := attributevalue.MarshalMap(guardItem{ID: id, Kind: kindGuard, Owner: owner})
	if err != nil {
		return nil, fmt.Errorf("dynamodb: encode guard: %w", err)
	}
	return r.put(item, cond), nil
}

func scanExpression(f store.Filter) (expression.Expression, error) {
	filt := expression.Name(attrKind).Equal(expression.Value(kindUser))
	if f.SearchUsername != "" {
		filt = filt.And(expression.Name(attrSearchUsername).Equal(expression.Value(f.SearchUsername)))
	}
	if f.SearchEmail != "" {
		filt = filt.And(expression.Name(attrSearchEmail).Equal(expression.Value(f.SearchEmail)))
	}
	expr, err := expression.NewBuilder().WithFilter(filt).Build()
	if err != nil {
		return expression.Expression{}, fmt.Errorf("dynamodb: build filter: %w", err)
	}
	return expr, nil
}

func cancellation(err error) ([]types.CancellationReason, bool) {
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		return tce.CancellationReasons, true
	}
	return nil, false
}
