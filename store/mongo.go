package store

import (
	"context"
	"errors"
	"time"

	"github.com/LovationAdmin/expensewise-api/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	expensesCollection   = "expenses"
	categoriesCollection = "usercategories"
	budgetsCollection    = "budgets"
	stateCollection      = "globalstates"

	categoryNameIndex = "name_ci"
)

// Case-insensitive comparison for category names.
var nameCollation = &options.Collation{Locale: "en", Strength: 2}

// MongoStore keeps the ledger in the expenses, usercategories, budgets and
// globalstates collections. Update scopes need a replica set for
// transactions.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(database)}
}

// EnsureIndexes creates the unique indexes the ledger relies on. A
// database that already has a case-sensitive unique index on the category
// name keeps it; case-insensitive duplicates are then still rejected by the
// ledger before insert.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(categoriesCollection).Indexes().CreateOne(ctx, categoryIndexModel())
	if err != nil && !isIndexConflict(err) {
		return err
	}
	_, err = s.db.Collection(budgetsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "category", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil && !isIndexConflict(err) {
		return err
	}
	_, err = s.db.Collection(expensesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "date", Value: -1}}},
	})
	return err
}

// categoryIndexModel is named so it never collides with a default name_1
// index on the same key.
func categoryIndexModel() mongo.IndexModel {
	return mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}},
		Options: options.Index().
			SetName(categoryNameIndex).
			SetUnique(true).
			SetCollation(nameCollation),
	}
}

// Server codes for an index that cannot be created next to existing ones
// (IndexOptionsConflict, IndexKeySpecsConflict) or over data that already
// violates it (DuplicateKey).
var indexConflictCodes = map[int32]bool{85: true, 86: true, 11000: true}

func isIndexConflict(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return indexConflictCodes[cmdErr.Code]
	}
	return mongo.IsDuplicateKeyError(err)
}

func (s *MongoStore) View(ctx context.Context, fn func(ctx context.Context, l Ledger) error) error {
	return fn(ctx, &mongoLedger{db: s.db, readOnly: true})
}

func (s *MongoStore) Update(ctx context.Context, fn func(ctx context.Context, l Ledger) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(txCtx context.Context) (any, error) {
		return nil, fn(txCtx, &mongoLedger{db: s.db, locking: true})
	})
	return err
}

func (s *MongoStore) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }
func (s *MongoStore) Backend() string                { return BackendMongo }

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

type expenseDoc struct {
	ID       bson.ObjectID `bson:"_id,omitempty"`
	Date     string        `bson:"date"`
	Amount   float64       `bson:"amount"`
	Category string        `bson:"category"`
	Notes    string        `bson:"notes"`
}

func newExpenseDoc(e models.Expense) expenseDoc {
	return expenseDoc{
		Date:     e.Date.String(),
		Amount:   e.Amount.InexactFloat64(),
		Category: e.Category,
		Notes:    e.Notes,
	}
}

func (d expenseDoc) model() models.Expense {
	// Dates are stored as YYYY-MM-DD strings; a malformed one reads as zero.
	date, _ := models.ParseDate(d.Date)
	return models.Expense{
		ID:       d.ID.Hex(),
		Date:     date,
		Amount:   decimal.NewFromFloat(d.Amount),
		Category: d.Category,
		Notes:    d.Notes,
	}
}

type categoryDoc struct {
	ID   bson.ObjectID  `bson:"_id,omitempty"`
	Name string         `bson:"name"`
	Icon models.IconKey `bson:"icon"`
}

type budgetDoc struct {
	Category string  `bson:"category"`
	Amount   float64 `bson:"amount"`
}

// stateDoc is the only document of globalstates. Its _id is whatever the
// first writer chose, usually an ObjectID.
type stateDoc struct {
	MonthlyBudget float64 `bson:"monthlyBudget"`
	ArchivedSpend float64 `bson:"archivedSpend"`
}

type mongoLedger struct {
	db       *mongo.Database
	locking  bool
	readOnly bool
}

func (l *mongoLedger) writable() error {
	if l.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (l *mongoLedger) expenses() *mongo.Collection   { return l.db.Collection(expensesCollection) }
func (l *mongoLedger) categories() *mongo.Collection { return l.db.Collection(categoriesCollection) }
func (l *mongoLedger) budgets() *mongo.Collection    { return l.db.Collection(budgetsCollection) }
func (l *mongoLedger) state() *mongo.Collection      { return l.db.Collection(stateCollection) }

func mapMongoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return errors.Join(ErrConflict, err)
	}
	return err
}

func (l *mongoLedger) findExpenses(ctx context.Context, filter any) ([]models.Expense, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := l.expenses().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []expenseDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	list := make([]models.Expense, 0, len(docs))
	for _, d := range docs {
		list = append(list, d.model())
	}
	return list, nil
}

func (l *mongoLedger) ListExpenses(ctx context.Context) ([]models.Expense, error) {
	list, err := l.findExpenses(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	sortExpenses(list)
	return list, nil
}

func (l *mongoLedger) GetExpense(ctx context.Context, id string) (models.Expense, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return models.Expense{}, ErrNotFound
	}
	var doc expenseDoc
	if err := l.expenses().FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		return models.Expense{}, mapMongoError(err)
	}
	return doc.model(), nil
}

func (l *mongoLedger) InsertExpense(ctx context.Context, e models.Expense) (models.Expense, error) {
	if err := l.writable(); err != nil {
		return models.Expense{}, err
	}
	doc := newExpenseDoc(e)
	if e.ID != "" {
		oid, err := bson.ObjectIDFromHex(e.ID)
		if err != nil {
			return models.Expense{}, err
		}
		doc.ID = oid
	} else {
		doc.ID = bson.NewObjectID()
	}
	if _, err := l.expenses().InsertOne(ctx, doc); err != nil {
		return models.Expense{}, mapMongoError(err)
	}
	return doc.model(), nil
}

func (l *mongoLedger) UpdateExpense(ctx context.Context, e models.Expense) error {
	if err := l.writable(); err != nil {
		return err
	}
	oid, err := bson.ObjectIDFromHex(e.ID)
	if err != nil {
		return ErrNotFound
	}
	doc := newExpenseDoc(e)
	doc.ID = oid
	res, err := l.expenses().ReplaceOne(ctx, bson.D{{Key: "_id", Value: oid}}, doc)
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (l *mongoLedger) DeleteExpense(ctx context.Context, id string) error {
	if err := l.writable(); err != nil {
		return err
	}
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := l.expenses().DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllExpenses deletes by the ids it read, so an expense inserted after
// the read is neither counted nor removed.
func (l *mongoLedger) DeleteAllExpenses(ctx context.Context) ([]models.Expense, error) {
	if err := l.writable(); err != nil {
		return nil, err
	}
	list, err := l.ListExpenses(ctx)
	if err != nil || len(list) == 0 {
		return list, err
	}
	ids := make([]bson.ObjectID, 0, len(list))
	for _, e := range list {
		oid, err := bson.ObjectIDFromHex(e.ID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, oid)
	}
	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
	if _, err := l.expenses().DeleteMany(ctx, filter); err != nil {
		return nil, err
	}
	return list, nil
}

func (l *mongoLedger) DeleteExpensesByCategory(ctx context.Context, category string) (int64, error) {
	if err := l.writable(); err != nil {
		return 0, err
	}
	res, err := l.expenses().DeleteMany(ctx, bson.D{{Key: "category", Value: category}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (l *mongoLedger) ListCategories(ctx context.Context) ([]models.Category, error) {
	cur, err := l.categories().Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []categoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	list := make([]models.Category, 0, len(docs))
	for _, d := range docs {
		list = append(list, models.Category{Name: d.Name, Icon: models.IconOrFallback(string(d.Icon))})
	}
	return list, nil
}

func (l *mongoLedger) FindCategory(ctx context.Context, name string) (models.Category, error) {
	filter := bson.D{{Key: "name", Value: name}}
	var doc categoryDoc
	var err error
	if l.locking {
		// Writing the document makes a concurrent delete of it conflict
		// with this transaction.
		update := bson.D{{Key: "$set", Value: bson.D{{Key: "lockedAt", Value: time.Now()}}}}
		err = l.categories().FindOneAndUpdate(ctx, filter, update).Decode(&doc)
	} else {
		err = l.categories().FindOne(ctx, filter).Decode(&doc)
	}
	if err != nil {
		return models.Category{}, mapMongoError(err)
	}
	return models.Category{Name: doc.Name, Icon: models.IconOrFallback(string(doc.Icon))}, nil
}

func (l *mongoLedger) FindCategoryFold(ctx context.Context, name string) (models.Category, error) {
	var doc categoryDoc
	err := l.categories().FindOne(ctx, bson.D{{Key: "name", Value: name}},
		options.FindOne().SetCollation(nameCollation)).Decode(&doc)
	if err != nil {
		return models.Category{}, mapMongoError(err)
	}
	return models.Category{Name: doc.Name, Icon: models.IconOrFallback(string(doc.Icon))}, nil
}

func (l *mongoLedger) InsertCategory(ctx context.Context, c models.Category) error {
	if err := l.writable(); err != nil {
		return err
	}
	_, err := l.categories().InsertOne(ctx, categoryDoc{ID: bson.NewObjectID(), Name: c.Name, Icon: c.Icon})
	return mapMongoError(err)
}

func (l *mongoLedger) DeleteCategory(ctx context.Context, name string) (bool, error) {
	if err := l.writable(); err != nil {
		return false, err
	}
	res, err := l.categories().DeleteOne(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (l *mongoLedger) ListBudgets(ctx context.Context) ([]models.Budget, error) {
	cur, err := l.budgets().Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "category", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []budgetDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	list := make([]models.Budget, 0, len(docs))
	for _, d := range docs {
		list = append(list, models.Budget{Category: d.Category, Amount: decimal.NewFromFloat(d.Amount)})
	}
	return list, nil
}

func (l *mongoLedger) UpsertBudget(ctx context.Context, b models.Budget) (models.Budget, error) {
	if err := l.writable(); err != nil {
		return models.Budget{}, err
	}
	filter := bson.D{{Key: "category", Value: b.Category}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "amount", Value: b.Amount.InexactFloat64()}}}}
	if _, err := l.budgets().UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true)); err != nil {
		return models.Budget{}, mapMongoError(err)
	}
	return b, nil
}

func (l *mongoLedger) DeleteBudget(ctx context.Context, category string) (bool, error) {
	if err := l.writable(); err != nil {
		return false, err
	}
	res, err := l.budgets().DeleteOne(ctx, bson.D{{Key: "category", Value: category}})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// The singleton is addressed without an _id. If a collection ever holds
// more than one document, the oldest wins.
func stateFilter() bson.D { return bson.D{} }

func stateSort() bson.D { return bson.D{{Key: "_id", Value: 1}} }

func stateLockUpdate(now time.Time) bson.D {
	return bson.D{{Key: "$set", Value: bson.D{{Key: "lockedAt", Value: now}}}}
}

func stateUpsert(st models.GlobalState, newID bson.ObjectID) bson.D {
	return bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "monthlyBudget", Value: st.MonthlyBudget.InexactFloat64()},
			{Key: "archivedSpend", Value: st.ArchivedSpend.InexactFloat64()},
		}},
		{Key: "$setOnInsert", Value: bson.D{{Key: "_id", Value: newID}}},
	}
}

func (l *mongoLedger) GetState(ctx context.Context) (models.GlobalState, error) {
	var doc stateDoc
	var err error
	if l.locking {
		opts := options.FindOneAndUpdate().SetSort(stateSort())
		err = l.state().FindOneAndUpdate(ctx, stateFilter(), stateLockUpdate(time.Now()), opts).Decode(&doc)
	} else {
		err = l.state().FindOne(ctx, stateFilter(), options.FindOne().SetSort(stateSort())).Decode(&doc)
	}
	if err != nil {
		return models.GlobalState{}, mapMongoError(err)
	}
	return models.GlobalState{
		MonthlyBudget: decimal.NewFromFloat(doc.MonthlyBudget),
		ArchivedSpend: decimal.NewFromFloat(doc.ArchivedSpend),
	}, nil
}

func (l *mongoLedger) PutState(ctx context.Context, st models.GlobalState) error {
	if err := l.writable(); err != nil {
		return err
	}
	opts := options.FindOneAndUpdate().SetSort(stateSort()).SetUpsert(true)
	err := l.state().FindOneAndUpdate(ctx, stateFilter(), stateUpsert(st, bson.NewObjectID()), opts).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Upserted; there was no previous document to return.
		return nil
	}
	return err
}
