package store

import (
	"context"
	"time"

	"StayChat/module/chat/model"
	"StayChat/service/mgo"
	"StayChat/tools/errs"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoFactory opens one mongo session per scope. The database handle is
// resolved lazily so construction can happen before mgo.Init.
type MongoFactory struct{}

func NewMongoFactory() *MongoFactory { return &MongoFactory{} }

func (f *MongoFactory) Open(ctx context.Context) (Scope, error) {
	db := mgo.GetDB()
	sess, err := db.Client().StartSession()
	if err != nil {
		return nil, errs.ErrStorage.WrapMsg("start session", "err", err)
	}
	if err := sess.StartTransaction(); err != nil {
		sess.EndSession(ctx)
		return nil, errs.ErrStorage.WrapMsg("start transaction", "err", err)
	}
	return &mongoScope{db: db, sess: sess}, nil
}

type mongoScope struct {
	db        *mongo.Database
	sess      mongo.Session
	committed bool
}

func (s *mongoScope) Conversations() ConversationRepo { return &conversationRepo{s: s} }
func (s *mongoScope) Messages() MessageRepo           { return &messageRepo{s: s} }

func (s *mongoScope) Commit(ctx context.Context) error {
	if err := s.sess.CommitTransaction(mongo.NewSessionContext(ctx, s.sess)); err != nil {
		return errs.ErrStorage.WrapMsg("commit", "err", err)
	}
	s.committed = true
	return nil
}

func (s *mongoScope) Close(ctx context.Context) {
	if !s.committed {
		// 未提交的一律回滚
		_ = s.sess.AbortTransaction(mongo.NewSessionContext(ctx, s.sess))
	}
	s.sess.EndSession(ctx)
}

func (s *mongoScope) sctx(ctx context.Context) mongo.SessionContext {
	return mongo.NewSessionContext(ctx, s.sess)
}

// ===== conversation =====

type conversationRepo struct {
	s *mongoScope
}

func (r *conversationRepo) Find(ctx context.Context, conversationID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.s.db.Collection(conv.TableName()).
		FindOne(r.s.sctx(ctx), bson.M{"conversation_id": conversationID}).
		Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.ErrStorage.WrapMsg("find conversation", "conversation_id", conversationID, "err", err)
	}
	return &conv, nil
}

// ===== message =====

type messageRepo struct {
	s *mongoScope
}

func (r *messageRepo) Find(ctx context.Context, id primitive.ObjectID) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	err := r.s.db.Collection(msg.TableName()).
		FindOne(r.s.sctx(ctx), bson.M{"_id": id}).
		Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.ErrStorage.WrapMsg("find message", "message_id", id.Hex(), "err", err)
	}
	return &msg, nil
}

func (r *messageRepo) MarkRead(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.s.db.Collection(model.MsgTableName).UpdateOne(r.s.sctx(ctx),
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": model.MsgStatusRead, "read_at": at}},
	)
	if err != nil {
		return errs.ErrStorage.WrapMsg("mark read", "message_id", id.Hex(), "err", err)
	}
	return nil
}
