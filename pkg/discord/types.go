// Package discord models the parts of Discord interaction payloads that the
// bot hands to its collaborators. It is deliberately framework-neutral: a
// gateway adapter converts its own types into these before calling the
// telemetry observer.
package discord

import (
	"fmt"
	"time"
)

// InteractionType is the top-level interaction type declared by Discord.
type InteractionType int

// Interaction types as numbered by the Discord API.
const (
	InteractionPing                           InteractionType = 1
	InteractionApplicationCommand             InteractionType = 2
	InteractionMessageComponent               InteractionType = 3
	InteractionApplicationCommandAutocomplete InteractionType = 4
	InteractionModalSubmit                    InteractionType = 5
)

// ComponentType is the secondary type code carried by component interactions.
type ComponentType int

// Component types relevant to interaction categorization.
const (
	ComponentActionRow  ComponentType = 1
	ComponentButton     ComponentType = 2
	ComponentSelectMenu ComponentType = 3
	ComponentTextInput  ComponentType = 4
)

// OptionType is the type of an application command option.
type OptionType int

// Option types. Sub commands and groups nest further options.
const (
	OptionSubCommand      OptionType = 1
	OptionSubCommandGroup OptionType = 2
	OptionString          OptionType = 3
	OptionInteger         OptionType = 4
	OptionBoolean         OptionType = 5
	OptionUser            OptionType = 6
	OptionChannel         OptionType = 7
	OptionRole            OptionType = 8
	OptionMentionable     OptionType = 9
	OptionNumber          OptionType = 10
)

// User is the invoking user.
type User struct {
	ID            uint64
	Username      string
	Discriminator string
}

// String renders the user the way Discord clients display it.
func (u User) String() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return fmt.Sprintf("%s#%s", u.Username, u.Discriminator)
}

// Guild is the server an interaction happened in.
type Guild struct {
	ID   uint64
	Name string
}

// Command is an application command attached to an interaction.
type Command struct {
	Name string
	// ContextMenu is set for user/message context menu commands.
	ContextMenu bool
}

// Option is a slash command option. Value holds a scalar, a Reference, or
// a nested []any / map[string]any of those.
type Option struct {
	Name    string
	Type    OptionType
	Value   any
	Options []Option
}

// Component is a single component inside a modal action row.
type Component struct {
	Type     ComponentType
	CustomID string
	Value    any
}

// ActionRow groups modal components.
type ActionRow struct {
	Components []Component
}

// InteractionData is the type-specific payload of an interaction.
type InteractionData struct {
	Name          string
	CustomID      string
	ComponentType ComponentType
	Options       []Option
	Values        []string
	Components    []ActionRow
}

// Interaction is a single user-initiated event delivered to the bot.
type Interaction struct {
	ID        uint64
	Type      InteractionType
	User      User
	GuildID   *uint64
	Guild     *Guild
	ChannelID uint64
	CreatedAt time.Time
	Command   *Command
	Data      *InteractionData
}

// InGuild reports whether the interaction happened in a guild rather than a DM.
func (i *Interaction) InGuild() bool {
	return i.GuildID != nil
}
