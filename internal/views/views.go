// Package views declares the entity types known to the API and the views
// each route exposes. A route narrows its view to the fields a caller
// selects; it never returns fields outside it.
package views

import (
	"github.com/heartmarshall/social-backend/internal/view"
)

// Schema is the field table of every stored entity type.
var Schema = view.MustSchema(
	view.NewType("User").
		Scalars("id", "name", "username", "email", "createdAt", "updatedAt").
		One("profile", "Profile"),
	view.NewType("Profile").
		Scalars("id", "userId", "bio", "location", "website", "twitter", "github", "linkedin",
			"private", "createdAt", "updatedAt").
		One("user", "User"),
	view.NewType("Post").
		Scalars("id", "authorId", "title", "content", "likes", "createdAt", "updatedAt", "commentTotal").
		One("author", "User").
		Many("comments", "Comment"),
	view.NewType("Comment").
		Scalars("id", "authorId", "postId", "content", "createdAt").
		One("author", "User").
		One("post", "Post"),
	view.NewType("ChatRoom").
		Scalars("id", "name", "private", "createdAt", "messageTotal").
		Many("admins", "User").
		Many("members", "User").
		Many("messages", "ChatRoomMessage"),
	view.NewType("ChatRoomMessage").
		Scalars("id", "seq", "authorId", "chatRoomId", "content", "createdAt", "updatedAt").
		One("author", "User").
		One("chatRoom", "ChatRoom"),
)

// CommentCount is the number of comments on a post.
var CommentCount = view.Derived([]string{"commentTotal"}, func(row view.Record) any {
	return view.Int(row["commentTotal"])
})

// ChatRoomMessageCount is the number of messages in a chat room.
var ChatRoomMessageCount = view.Derived([]string{"messageTotal"}, func(row view.Record) any {
	return view.Int(row["messageTotal"])
})

var (
	User = view.New("User", view.Fields{
		"id":       view.Scalar(),
		"name":     view.Scalar(),
		"username": view.Scalar(),
	})

	Profile = view.New("Profile", view.Fields{
		"id":       view.Scalar(),
		"bio":      view.Scalar(),
		"location": view.Scalar(),
		"website":  view.Scalar(),
		"twitter":  view.Scalar(),
		"github":   view.Scalar(),
		"linkedin": view.Scalar(),
		"private":  view.Scalar(),
		"user":     view.Nested(User),
	})

	postFields = view.Fields{
		"id":           view.Scalar(),
		"title":        view.Scalar(),
		"content":      view.Scalar(),
		"likes":        view.Scalar(),
		"author":       view.Nested(User),
		"commentCount": CommentCount,
	}

	// PostSummary is a post without its comments.
	PostSummary = view.New("Post", postFields)

	Comment = view.New("Comment", view.Fields{
		"id":      view.Scalar(),
		"content": view.Scalar(),
		"author":  view.Nested(User),
		"post":    view.Nested(PostSummary),
	})

	Post = PostSummary.With(view.Fields{
		"comments": view.Connection(Comment, nil),
	})

	ChatRoom = view.New("ChatRoom", view.Fields{
		"id":                   view.Scalar(),
		"name":                 view.Scalar(),
		"private":              view.Scalar(),
		"chatRoomMessageCount": ChatRoomMessageCount,
	})

	ChatRoomMessage = view.New("ChatRoomMessage", view.Fields{
		"id":        view.Scalar(),
		"seq":       view.Scalar(),
		"content":   view.Scalar(),
		"createdAt": view.Scalar(),
		"author":    view.Nested(User),
		"chatRoom":  view.Nested(ChatRoom),
	})
)

// All lists every route view by name.
func All() map[string]*view.View {
	return map[string]*view.View{
		"User":            User,
		"Profile":         Profile,
		"PostSummary":     PostSummary,
		"Post":            Post,
		"Comment":         Comment,
		"ChatRoom":        ChatRoom,
		"ChatRoomMessage": ChatRoomMessage,
	}
}

// Validate compiles every route view against Schema. Called at startup so
// a malformed view fails before serving.
func Validate() error {
	for _, v := range All() {
		if _, err := Schema.Compile(v); err != nil {
			return err
		}
	}
	return nil
}
