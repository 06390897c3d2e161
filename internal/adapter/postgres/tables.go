package postgres

import (
	"fmt"

	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/storage"
)

// table maps one entity type onto its SQL table.
type table struct {
	typeName string
	name     string

	// columns maps logical field names to column names.
	columns map[string]string

	// computed maps read-only logical fields to SQL expressions over the
	// alias of the current row.
	computed map[string]func(alias string) string

	relations map[string]relation
}

// relation describes how to reach the entities behind a relation field.
// Exactly one of local, foreign or through is set.
type relation struct {
	target string
	many   bool

	// local is the column on this table holding the target id (to-one).
	local string
	// foreign is the column on the target table holding this id (to-many).
	foreign string
	// through is a join table pairing this id with target ids (to-many).
	through *joinTable

	orderBy []storage.Order
}

type joinTable struct {
	name   string
	source string
	target string
}

func (t *table) column(field string) (string, bool) {
	c, ok := t.columns[field]
	return c, ok
}

// expr returns the SQL expression for a readable field on alias.
func (t *table) expr(alias, field string) (string, error) {
	if c, ok := t.columns[field]; ok {
		return alias + "." + c, nil
	}
	if fn, ok := t.computed[field]; ok {
		return fn(alias), nil
	}
	return "", domain.NewConfigurationError(t.typeName, field, "no column for field")
}

func (t *table) relation(name string) (relation, error) {
	r, ok := t.relations[name]
	if !ok {
		return relation{}, domain.NewConfigurationError(t.typeName, name, "no relation for field")
	}
	return r, nil
}

func countOf(tableName, fk string) func(alias string) string {
	return func(alias string) string {
		return fmt.Sprintf("(SELECT count(*) FROM %s cnt WHERE cnt.%s = %s.id)", tableName, fk, alias)
	}
}

// defaultTables returns the table descriptions of every stored entity type.
func defaultTables() map[string]*table {
	tables := []*table{
		{
			typeName: "User",
			name:     "users",
			columns: map[string]string{
				"id":        "id",
				"name":      "name",
				"username":  "username",
				"email":     "email",
				"createdAt": "created_at",
				"updatedAt": "updated_at",
			},
			relations: map[string]relation{
				"profile": {target: "Profile", foreign: "user_id"},
			},
		},
		{
			typeName: "Profile",
			name:     "profiles",
			columns: map[string]string{
				"id":        "id",
				"userId":    "user_id",
				"bio":       "bio",
				"location":  "location",
				"website":   "website",
				"twitter":   "twitter",
				"github":    "github",
				"linkedin":  "linkedin",
				"private":   "private",
				"createdAt": "created_at",
				"updatedAt": "updated_at",
			},
			relations: map[string]relation{
				"user": {target: "User", local: "user_id"},
			},
		},
		{
			typeName: "Post",
			name:     "posts",
			columns: map[string]string{
				"id":        "id",
				"authorId":  "author_id",
				"title":     "title",
				"content":   "content",
				"likes":     "likes",
				"createdAt": "created_at",
				"updatedAt": "updated_at",
			},
			computed: map[string]func(string) string{
				"commentTotal": countOf("comments", "post_id"),
			},
			relations: map[string]relation{
				"author": {target: "User", local: "author_id"},
				"comments": {
					target: "Comment", many: true, foreign: "post_id",
					orderBy: []storage.Order{{Field: "createdAt"}},
				},
			},
		},
		{
			typeName: "Comment",
			name:     "comments",
			columns: map[string]string{
				"id":        "id",
				"authorId":  "author_id",
				"postId":    "post_id",
				"content":   "content",
				"createdAt": "created_at",
			},
			relations: map[string]relation{
				"author": {target: "User", local: "author_id"},
				"post":   {target: "Post", local: "post_id"},
			},
		},
		{
			typeName: "ChatRoom",
			name:     "chat_rooms",
			columns: map[string]string{
				"id":        "id",
				"name":      "name",
				"private":   "private",
				"createdAt": "created_at",
			},
			computed: map[string]func(string) string{
				"messageTotal": countOf("chat_room_messages", "room_id"),
			},
			relations: map[string]relation{
				"admins": {
					target: "User", many: true,
					through: &joinTable{name: "chat_room_admins", source: "room_id", target: "user_id"},
				},
				"members": {
					target: "User", many: true,
					through: &joinTable{name: "chat_room_members", source: "room_id", target: "user_id"},
				},
				"messages": {
					target: "ChatRoomMessage", many: true, foreign: "room_id",
					orderBy: []storage.Order{{Field: "seq"}},
				},
			},
		},
		{
			typeName: "ChatRoomMessage",
			name:     "chat_room_messages",
			columns: map[string]string{
				"id":         "id",
				"seq":        "seq",
				"authorId":   "author_id",
				"chatRoomId": "room_id",
				"content":    "content",
				"createdAt":  "created_at",
				"updatedAt":  "updated_at",
			},
			relations: map[string]relation{
				"author":   {target: "User", local: "author_id"},
				"chatRoom": {target: "ChatRoom", local: "room_id"},
			},
		},
	}

	out := make(map[string]*table, len(tables))
	for _, t := range tables {
		out[t.typeName] = t
	}
	return out
}
