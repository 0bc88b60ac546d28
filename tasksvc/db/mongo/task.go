package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ichigozero/focusflow/tasksvc"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	libmongo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const taskCollection = "todos"

type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Category    string             `bson:"category"`
	Completed   bool               `bson:"completed"`
	DueDate     *time.Time         `bson:"dueDate,omitempty"`
	User        primitive.ObjectID `bson:"user"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func newTaskDocument(t tasksvc.Task) (taskDocument, error) {
	user, err := primitive.ObjectIDFromHex(t.OwnerID)
	if err != nil {
		return taskDocument{}, fmt.Errorf("%w: owner id %q is not an object id", tasksvc.ErrInvalidArgument, t.OwnerID)
	}
	return taskDocument{
		Title:       t.Title,
		Description: t.Description,
		Category:    string(t.Category),
		Completed:   t.Completed,
		DueDate:     t.DueDate,
		User:        user,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}, nil
}

func (d taskDocument) task() tasksvc.Task {
	t := tasksvc.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Category:    tasksvc.Category(d.Category),
		Completed:   d.Completed,
		OwnerID:     d.User.Hex(),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if d.DueDate != nil {
		due := d.DueDate.UTC()
		t.DueDate = &due
	}
	return t
}

type taskRepository struct {
	tasks *libmongo.Collection
}

func NewTaskRepository(db *libmongo.Database) tasksvc.TaskRepository {
	return &taskRepository{tasks: db.Collection(taskCollection)}
}

// EnsureTaskIndexes creates the index backing owner-scoped listing.
func EnsureTaskIndexes(ctx context.Context, db *libmongo.Database) error {
	_, err := db.Collection(taskCollection).Indexes().CreateOne(ctx, libmongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}

func (r *taskRepository) Create(ctx context.Context, t tasksvc.Task) (tasksvc.Task, error) {
	doc, err := newTaskDocument(t)
	if err != nil {
		return tasksvc.Task{}, err
	}

	res, err := r.tasks.InsertOne(ctx, doc)
	if err != nil {
		return tasksvc.Task{}, err
	}

	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.task(), nil
}

// FindAll returns an empty list for an owner id that is not an object id,
// since no task can reference it.
func (r *taskRepository) FindAll(ctx context.Context, ownerID string) ([]tasksvc.Task, error) {
	user, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return []tasksvc.Task{}, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.tasks.Find(ctx, bson.M{"user": user}, opts)
	if err != nil {
		return nil, err
	}

	var docs []taskDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	tasks := make([]tasksvc.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.task())
	}
	return tasks, nil
}

func (r *taskRepository) Find(ctx context.Context, taskID string) (tasksvc.Task, error) {
	oid, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}

	var doc taskDocument
	if err := r.tasks.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return tasksvc.Task{}, notFound(err)
	}
	return doc.task(), nil
}

func (r *taskRepository) Update(ctx context.Context, taskID string, p tasksvc.Patch, updatedAt time.Time) (tasksvc.Task, error) {
	oid, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}

	set, unset := updateDocument(p, updatedAt)
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc taskDocument
	err = r.tasks.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc)
	if err != nil {
		return tasksvc.Task{}, notFound(err)
	}
	return doc.task(), nil
}

func (r *taskRepository) Delete(ctx context.Context, taskID string) (tasksvc.Task, error) {
	oid, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}

	var doc taskDocument
	err = r.tasks.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		return tasksvc.Task{}, notFound(err)
	}
	return doc.task(), nil
}

// updateDocument splits a patch into $set and $unset operands. A cleared due
// date is unset rather than stored as null.
func updateDocument(p tasksvc.Patch, updatedAt time.Time) (bson.M, bson.M) {
	set := bson.M{"updatedAt": updatedAt}
	unset := bson.M{}

	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Category != nil {
		set["category"] = string(*p.Category)
	}
	if p.DueDate != nil {
		if due := p.DueDate.Ptr(); due != nil {
			set["dueDate"] = *due
		} else {
			unset["dueDate"] = ""
		}
	}
	if p.Completed != nil {
		set["completed"] = *p.Completed
	}
	return set, unset
}

func notFound(err error) error {
	if errors.Is(err, libmongo.ErrNoDocuments) {
		return tasksvc.ErrTaskNotFound
	}
	return err
}
