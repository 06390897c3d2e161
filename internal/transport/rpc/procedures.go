package rpc

import (
	"context"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/service/chat"
	"github.com/heartmarshall/social-backend/internal/service/comment"
	"github.com/heartmarshall/social-backend/internal/service/post"
	"github.com/heartmarshall/social-backend/internal/service/profile"
	"github.com/heartmarshall/social-backend/internal/service/user"
	"github.com/heartmarshall/social-backend/internal/view"
)

// userService defines what the handler needs from the User service.
type userService interface {
	ByID(ctx context.Context, in user.ByIDInput) ([]view.Record, error)
	Update(ctx context.Context, in user.UpdateInput) (view.Record, error)
}

// profileService defines what the handler needs from the Profile service.
type profileService interface {
	ByID(ctx context.Context, in profile.ByIDInput) ([]view.Record, error)
	ByUserID(ctx context.Context, in profile.ByUserIDInput) (*connection.Page, error)
	Me(ctx context.Context, sel []string) (view.Record, error)
	Update(ctx context.Context, in profile.UpdateInput) (view.Record, error)
}

// postService defines what the handler needs from the Post service.
type postService interface {
	ByID(ctx context.Context, in post.ByIDInput) ([]view.Record, error)
	List(ctx context.Context, in post.ListInput) (*connection.Page, error)
}

// commentService defines what the handler needs from the Comment service.
type commentService interface {
	Add(ctx context.Context, in comment.AddInput) (view.Record, error)
	Delete(ctx context.Context, in comment.DeleteInput) (view.Record, error)
	Search(ctx context.Context, in comment.SearchInput) (*connection.Page, error)
}

// chatService defines what the handler needs from the Chat service.
type chatService interface {
	RoomByID(ctx context.Context, in chat.ByIDInput) ([]view.Record, error)
	RoomList(ctx context.Context, in chat.RoomListInput) (*connection.Page, error)
	MessageAdd(ctx context.Context, in chat.AddMessageInput) (view.Record, error)
	MessageByID(ctx context.Context, in chat.ByIDInput) ([]view.Record, error)
	MessageEdit(ctx context.Context, in chat.EditMessageInput) (view.Record, error)
	MessageDelete(ctx context.Context, in chat.DeleteMessageInput) (view.Record, error)
	MessageList(ctx context.Context, in chat.MessageListInput) (*connection.Page, error)
	MessageSearch(ctx context.Context, in chat.MessageSearchInput) (*connection.Page, error)
}

// Services aggregates the services exposed over RPC.
type Services struct {
	User    userService
	Profile profileService
	Post    postService
	Comment commentService
	Chat    chatService
}

type idsInput struct {
	IDs []string `json:"ids"`
}

type idInput struct {
	ID string `json:"id"`
}

func (h *Handler) register(s Services) map[string]procedure {
	return map[string]procedure{
		// user
		"user.byId": h.byID("user.byId", func(ctx context.Context, ids, sel []string) ([]view.Record, error) {
			return s.User.ByID(ctx, user.ByIDInput{IDs: ids, Select: sel})
		}),
		"user.update": func(ctx context.Context, c *call) (any, error) {
			var in struct {
				Name string `json:"name"`
			}
			if err := c.decode(&in); err != nil {
				return nil, err
			}
			return s.User.Update(ctx, user.UpdateInput{Name: in.Name, Select: c.sel})
		},

		// profile
		"profile.byId": h.byID("profile.byId", func(ctx context.Context, ids, sel []string) ([]view.Record, error) {
			return s.Profile.ByID(ctx, profile.ByIDInput{IDs: ids, Select: sel})
		}),
		"profile.byUserId": func(ctx context.Context, c *call) (any, error) {
			var in struct {
				UserID string `json:"userId"`
			}
			if err := c.decode(&in); err != nil {
				return nil, err
			}
			return s.Profile.ByUserID(ctx, profile.ByUserIDInput{UserID: in.UserID, Args: c.args, Select: c.sel})
		},
		"profile.me": func(ctx context.Context, c *call) (any, error) {
			return s.Profile.Me(ctx, c.sel)
		},
		"profile.update": func(ctx context.Context, c *call) (any, error) {
			var in struct {
				Bio      *string `json:"bio"`
				Location *string `json:"location"`
				Website  *string `json:"website"`
				Twitter  *string `json:"twitter"`
				Github   *string `json:"github"`
				Linkedin *string `json:"linkedin"`
				Private  *bool   `json:"private"`
			}
			if err := c.decode(&in); err != nil {
				return nil, err
			}
			return s.Profile.Update(ctx, profile.UpdateInput{
				Bio:      in.Bio,
				Location: in.Location,
				Website:  in.Website,
				Twitter:  in.Twitter,
				Github:   in.Github,
				Linkedin: in.Linkedin,
				Private:  in.Private,
				Select:   c.sel,
			})
		},

		// post
		"post.byId": h.byID("post.byId", func(ctx context.Context, ids, sel []string) ([]view.Record, error) {
			return s.Post.ByID(ctx, post.ByIDInput{IDs: ids, Select: sel})
		}),
		"post.list": func(ctx context.Context, c *call) (any, error) {
			var in struct {
				AuthorID string `json:"authorId"`
			}
			if err := c.decode(&in); err != nil {
				return nil, err
			}
			return s.Post.List(ctx, post.ListInput{AuthorID: in.AuthorID, Args: c.args, Select: c.sel})
		},

		// comment
		"comment.add": func(ctx context.Context, c *call) (any, error) {
			var in struct {
				PostID  string `json:"postId"`
				Content string `json:"content"`
			}
			if err := c.decode(&in); err != nil {
				return nil, err
			}
			return s.Comment.Add(ctx, comment.AddInput{PostID: in.PostID, Content: in.Content, Select: c.sel})
		},
		"comment.delete": func(ctx context.Context, c *call) (any, error) {
			var in idInput
			if err := c.decode(&in); err != nil {
				return nil, err
			}
			return s.Comment.Delete(ctx, comment.DeleteInput{ID: in.ID, Select: c.sel})
		},
		"comment.search": func(ctx context.Context, c *call) (any, error) {
			var in struct {
				Query  string `json:"query"`
				PostID string `json:"postId"`
			}
			if err := c.decode(&in); err != nil {
				return nil, err
			}
			return s.Comment.Search(ctx, comment.SearchInput{Query: in.Query, PostID: in.PostID, Args: c.args, Select: c.sel})
		},

		// chat rooms
		"chatroom.byId": h.byID("chatroom.byId", func(ctx context.Context, ids, sel []string) ([]view.Record, error) {
			return s.Chat.RoomByID(ctx, chat.ByIDInput{IDs: ids, Select: sel})
		}),
		"chatroom.list": func(ctx context.Context, c *call) (any, error) {
			return s.Chat.RoomList(ctx, chat.RoomListInput{Args: c.args, Select: c.sel})
		},

		// chat messages
		"chatroommessage.add": func(ctx context.Context, c *call) (any, error) {
			var in struct {
				ChatRoomID string `json:"chatRoomId"`
				Content    string `json:"content"`
			}
			if err := c.decode(&in); err != nil {
				return nil, err
			}
			return s.Chat.MessageAdd(ctx, chat.AddMessageInput{ChatRoomID: in.ChatRoomID, Content: in.Content, Select: c.sel})
		},
		"chatroommessage.byId": h.byID("chatroommessage.byId", func(ctx context.Context, ids, sel []string) ([]view.Record, error) {
			return s.Chat.MessageByID(ctx, chat.ByIDInput{IDs: ids, Select: sel})
		}),
		"chatroommessage.edit": func(ctx context.Context, c *call) (any, error) {
			var in struct {
				ID      string `json:"id"`
				Content string `json:"content"`
			}
			if err := c.decode(&in); err != nil {
				return nil, err
			}
			return s.Chat.MessageEdit(ctx, chat.EditMessageInput{ID: in.ID, Content: in.Content, Select: c.sel})
		},
		"chatroommessage.delete": func(ctx context.Context, c *call) (any, error) {
			var in idInput
			if err := c.decode(&in); err != nil {
				return nil, err
			}
			return s.Chat.MessageDelete(ctx, chat.DeleteMessageInput{ID: in.ID, Select: c.sel})
		},
		"chatroommessage.list": func(ctx context.Context, c *call) (any, error) {
			var in struct {
				ChatRoomID string `json:"chatRoomId"`
			}
			if err := c.decode(&in); err != nil {
				return nil, err
			}
			return s.Chat.MessageList(ctx, chat.MessageListInput{ChatRoomID: in.ChatRoomID, Args: c.args, Select: c.sel})
		},
		"chatroommessage.search": func(ctx context.Context, c *call) (any, error) {
			var in struct {
				Query      string `json:"query"`
				ChatRoomID string `json:"chatRoomId"`
			}
			if err := c.decode(&in); err != nil {
				return nil, err
			}
			return s.Chat.MessageSearch(ctx, chat.MessageSearchInput{Query: in.Query, ChatRoomID: in.ChatRoomID, Args: c.args, Select: c.sel})
		},
	}
}

// byID serves a byId procedure through the request loaders.
func (h *Handler) byID(name string, fetch byIDFunc) procedure {
	return func(ctx context.Context, c *call) (any, error) {
		var in idsInput
		if err := c.decode(&in); err != nil {
			return nil, err
		}
		return loadersFromContext(ctx, h.opts.LoaderWait).Load(ctx, name, fetch, in.IDs, c.sel)
	}
}
