package domain

import (
	"github.com/yungbote/companion-backend/internal/domain/avatar"
	"github.com/yungbote/companion-backend/internal/domain/generation"
	"github.com/yungbote/companion-backend/internal/domain/media"
	"github.com/yungbote/companion-backend/internal/domain/messenger"
	"github.com/yungbote/companion-backend/internal/domain/user"
)

const (
	RoleUser      = messenger.RoleUser
	RoleAssistant = messenger.RoleAssistant

	TaskStatusQueued    = generation.TaskStatusQueued
	TaskStatusSucceeded = generation.TaskStatusSucceeded
	TaskStatusFailed    = generation.TaskStatusFailed
	TaskStatusTimedOut  = generation.TaskStatusTimedOut
)

type User = user.User

type Avatar = avatar.Avatar
type AvatarPhoto = avatar.AvatarPhoto
type AvatarMessagePhoto = avatar.MessagePhoto
type AvatarFarewellMessage = avatar.FarewellMessage
type AvatarHelloMessage = avatar.HelloMessage

type Media = media.Media

type Role = messenger.Role
type Participant = messenger.Participant
type Pair = messenger.Pair
type Message = messenger.Message
type AssistantMessage = messenger.AssistantMessage
type AvatarOnline = messenger.AvatarOnline

type GenerationTask = generation.Task

var (
	UserParticipant   = messenger.UserParticipant
	AvatarParticipant = messenger.AvatarParticipant
	Direction         = messenger.Direction
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&User{},
		&Media{},
		&Avatar{},
		&AvatarPhoto{},
		&AvatarMessagePhoto{},
		&AvatarFarewellMessage{},
		&AvatarHelloMessage{},
		&Message{},
		&AssistantMessage{},
		&AvatarOnline{},
		&GenerationTask{},
	}
}
