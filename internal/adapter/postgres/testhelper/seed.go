package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

func exec(t *testing.T, pool *pgxpool.Pool, what, sql string, args ...any) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), sql, args...); err != nil {
		t.Fatalf("testhelper: %s: %v", what, err)
	}
}

// SeedUser creates a user and returns its id.
func SeedUser(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	id, suffix := uuid.NewString(), uniqueSuffix()
	exec(t, pool, "SeedUser",
		`INSERT INTO users (id, name, username, email) VALUES ($1, $2, $3, $4)`,
		id, "Test User "+suffix, "user-"+suffix, "user-"+suffix+"@example.com",
	)
	return id
}

// SeedProfile creates a profile for userID and returns its id.
func SeedProfile(t *testing.T, pool *pgxpool.Pool, userID string, private bool) string {
	t.Helper()

	id := uuid.NewString()
	exec(t, pool, "SeedProfile",
		`INSERT INTO profiles (id, user_id, bio, private) VALUES ($1, $2, $3, $4)`,
		id, userID, "bio of "+userID, private,
	)
	return id
}

// SeedPost creates a post with the given creation time and returns its id.
func SeedPost(t *testing.T, pool *pgxpool.Pool, authorID, title string, createdAt time.Time) string {
	t.Helper()

	id := uuid.NewString()
	exec(t, pool, "SeedPost",
		`INSERT INTO posts (id, author_id, title, content, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)`,
		id, authorID, title, "content of "+title, createdAt,
	)
	return id
}

// SeedComment creates a comment and returns its id.
func SeedComment(t *testing.T, pool *pgxpool.Pool, authorID, postID, content string) string {
	t.Helper()

	id := uuid.NewString()
	exec(t, pool, "SeedComment",
		`INSERT INTO comments (id, author_id, post_id, content) VALUES ($1, $2, $3, $4)`,
		id, authorID, postID, content,
	)
	return id
}

// SeedChatRoom creates a room with the given admins and members and returns its id.
func SeedChatRoom(t *testing.T, pool *pgxpool.Pool, private bool, admins, members []string) string {
	t.Helper()

	id := uuid.NewString()
	exec(t, pool, "SeedChatRoom",
		`INSERT INTO chat_rooms (id, name, private) VALUES ($1, $2, $3)`,
		id, "room-"+uniqueSuffix(), private,
	)
	for _, u := range admins {
		exec(t, pool, "SeedChatRoom admin",
			`INSERT INTO chat_room_admins (room_id, user_id) VALUES ($1, $2)`, id, u)
	}
	for _, u := range members {
		exec(t, pool, "SeedChatRoom member",
			`INSERT INTO chat_room_members (room_id, user_id) VALUES ($1, $2)`, id, u)
	}
	return id
}

// SeedMessage creates a chat room message and returns its id.
func SeedMessage(t *testing.T, pool *pgxpool.Pool, roomID, authorID, content string) string {
	t.Helper()

	id := uuid.NewString()
	exec(t, pool, "SeedMessage",
		`INSERT INTO chat_room_messages (id, room_id, author_id, content) VALUES ($1, $2, $3, $4)`,
		id, roomID, authorID, content,
	)
	return id
}
