package messenger

import (
	"fmt"

	types "github.com/yungbote/companion-backend/internal/domain"
	"github.com/yungbote/companion-backend/internal/platform/openai"
)

const assistantSystemPrompt = "You should act as a dating assistant. The user will ask you a question or ask for help " +
	"writing a message, and you should help them with the response."

func avatarSystemTurn(a *types.Avatar) openai.Turn {
	spicy := "no"
	if a.SpicyConversations {
		spicy = "yes"
	}
	return openai.Turn{
		Role: openai.RoleSystem,
		Content: "You are embedded in a companion app. Your job is to talk to the user in the voice of a " +
			"character. You are given the character's age, name, personality and whether intimate " +
			"topics are allowed. Reply to the user's messages as this character:\n" +
			fmt.Sprintf("Age - %d\n", a.Age) +
			fmt.Sprintf("Name - %s\n", a.Name) +
			fmt.Sprintf("About you - %s\n", a.Biography) +
			fmt.Sprintf("Intimate topics: %s", spicy),
	}
}

func assistantSystemTurn() openai.Turn {
	return openai.Turn{Role: openai.RoleSystem, Content: assistantSystemPrompt}
}

// transcript maps newest-first rows into oldest-first turns, skipping rows
// without text.
func transcript(system openai.Turn, newestFirst []*types.Message) []openai.Turn {
	turns := make([]openai.Turn, 0, len(newestFirst)+1)
	turns = append(turns, system)
	for i := len(newestFirst) - 1; i >= 0; i-- {
		m := newestFirst[i]
		if !m.HasText() {
			continue
		}
		turns = append(turns, openai.Turn{Role: turnRole(m.Role), Content: m.TextValue()})
	}
	return turns
}

func assistantTranscript(newestFirst []*types.AssistantMessage) []openai.Turn {
	turns := make([]openai.Turn, 0, len(newestFirst)+1)
	turns = append(turns, assistantSystemTurn())
	for i := len(newestFirst) - 1; i >= 0; i-- {
		m := newestFirst[i]
		if m.Text == "" {
			continue
		}
		turns = append(turns, openai.Turn{Role: turnRole(m.Role), Content: m.Text})
	}
	return turns
}

func turnRole(r types.Role) string {
	if r == types.RoleUser {
		return openai.RoleUser
	}
	return openai.RoleAssistant
}
