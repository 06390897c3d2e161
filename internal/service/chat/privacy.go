package chat

import (
	"github.com/heartmarshall/social-backend/internal/storage"
)

// roomVisible matches the rooms userID may read: public rooms, rooms the
// user administers and private rooms the user is a member of. Anonymous
// callers see public rooms only.
func roomVisible(userID string) storage.Cond {
	public := storage.Eq{Field: "private", Value: false}
	if userID == "" {
		return public
	}
	isUser := storage.Eq{Field: "id", Value: userID}
	return storage.Or{
		public,
		storage.Some{Relation: "admins", Where: isUser},
		storage.And{
			storage.Eq{Field: "private", Value: true},
			storage.Some{Relation: "members", Where: isUser},
		},
	}
}

// messageVisible matches messages in rooms userID may read.
func messageVisible(userID string) storage.Cond {
	return storage.Has{Relation: "chatRoom", Where: roomVisible(userID)}
}

// messageMutable matches messages userID may edit or delete: their own and
// any in rooms they administer.
func messageMutable(userID string) storage.Cond {
	return storage.Or{
		storage.Has{Relation: "chatRoom", Where: storage.Some{
			Relation: "admins",
			Where:    storage.Eq{Field: "id", Value: userID},
		}},
		storage.Eq{Field: "authorId", Value: userID},
	}
}
