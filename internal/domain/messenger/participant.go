package messenger

import "fmt"

// ParticipantKind tags which side of a conversation a Participant is on.
type ParticipantKind uint8

const (
	KindUser ParticipantKind = iota + 1
	KindAvatar
)

func (k ParticipantKind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindAvatar:
		return "avatar"
	default:
		return "unknown"
	}
}

// Participant is one end of a user/avatar conversation.
type Participant struct {
	Kind ParticipantKind
	ID   int64
}

func UserParticipant(id int64) Participant   { return Participant{Kind: KindUser, ID: id} }
func AvatarParticipant(id int64) Participant { return Participant{Kind: KindAvatar, ID: id} }

func (p Participant) IsUser() bool   { return p.Kind == KindUser }
func (p Participant) IsAvatar() bool { return p.Kind == KindAvatar }

func (p Participant) String() string { return fmt.Sprintf("%s:%d", p.Kind, p.ID) }

// Pair is an ordered (user, avatar) conversation key.
type Pair struct {
	UserID   int64
	AvatarID int64
}

func (p Pair) String() string { return fmt.Sprintf("user:%d/avatar:%d", p.UserID, p.AvatarID) }

// Direction resolves sender and recipient into a conversation pair and the
// sender's role. Only heterogeneous pairs can exchange messages; anything else
// is a programming error and panics.
func Direction(sender, recipient Participant) (Pair, Role) {
	switch {
	case sender.IsUser() && recipient.IsAvatar():
		return Pair{UserID: sender.ID, AvatarID: recipient.ID}, RoleUser
	case sender.IsAvatar() && recipient.IsUser():
		return Pair{UserID: recipient.ID, AvatarID: sender.ID}, RoleAssistant
	default:
		panic(fmt.Sprintf("messenger: cannot exchange messages between %s and %s", sender, recipient))
	}
}
